package domain

import "testing"

func TestNormalizeChecklistFromStrings(t *testing.T) {
	items := NormalizeChecklist([]string{"Trocar óleo", "Verificar correia"})
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Item != "Trocar óleo" {
		t.Errorf("item text = %q", items[0].Item)
	}
	if items[0].Key != "trocar_oleo" {
		t.Errorf("key = %q, want trocar_oleo", items[0].Key)
	}
	if items[0].Resposta != ChecklistAnswerYes {
		t.Errorf("default answer = %q, want sim", items[0].Resposta)
	}
}

func TestNormalizeChecklistFromJSONText(t *testing.T) {
	raw := `[{"item":"Lubrificar","resposta":"Sim"},{"item":"Apertar parafusos","resposta":"N"}]`
	items := NormalizeChecklist(raw)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Resposta != ChecklistAnswerYes {
		t.Errorf("first answer = %q, want sim", items[0].Resposta)
	}
	if items[1].Resposta != ChecklistAnswerNo {
		t.Errorf("second answer = %q, want nao", items[1].Resposta)
	}
}

func TestNormalizeChecklistFromNewlineText(t *testing.T) {
	items := NormalizeChecklist("Checar nível\n\nMedir vibração\n")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].Item != "Medir vibração" {
		t.Errorf("second item = %q", items[1].Item)
	}
}

func TestNormalizeChecklistNil(t *testing.T) {
	if items := NormalizeChecklist(nil); len(items) != 0 {
		t.Fatalf("expected empty checklist, got %d items", len(items))
	}
}

func TestNormalizeAnswer(t *testing.T) {
	cases := []struct {
		in   string
		want ChecklistAnswer
	}{
		{"sim", ChecklistAnswerYes},
		{"Sim", ChecklistAnswerYes},
		{"yes", ChecklistAnswerYes},
		{"", ChecklistAnswerYes},
		{"nao", ChecklistAnswerNo},
		{"Não", ChecklistAnswerNo},
		{"N", ChecklistAnswerNo},
		{"no", ChecklistAnswerNo},
	}
	for _, tc := range cases {
		if got := NormalizeAnswer(tc.in); got != tc.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugKey(t *testing.T) {
	if got := SlugKey("Verificar pressão do óleo!"); got != "verificar_pressao_do_oleo" {
		t.Errorf("SlugKey = %q", got)
	}
}
