package domain

// User is the read-only projection of a usuarios row. User management lives
// outside this service; rows are only looked up to resolve actors,
// maintainers and creators.
type User struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Machine is the read-only projection of a maquinas row.
type Machine struct {
	ID   string
	Name string
	Tag  string
}
