package order

import "testing"

func TestIsValid(t *testing.T) {
	valid := []Direction{StrAsc, StrDesc, NumAsc, NumDesc}
	for _, d := range valid {
		if !d.IsValid() {
			t.Errorf("%q.IsValid() = false, want true", d)
		}
	}

	invalid := []Direction{"", "ASC", "numa", "SCORE"}
	for _, d := range invalid {
		if d.IsValid() {
			t.Errorf("%q.IsValid() = true, want false", d)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		attr string
		dir  Direction
	}{
		{"id ASC", "db_id", NumAsc},
		{"id DESC", "db_id", NumDesc},
		{"db_id", "db_id", NumAsc},
		{"@title STRD", "@title", StrDesc},
		{"@title asc", "@title", StrAsc},
		{"@cdate NUMD", "@cdate", NumDesc},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			o, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if o.Attr() != tt.attr || o.Direction() != tt.dir {
				t.Errorf("Parse(%q) = %s, want %s %s", tt.in, o, tt.attr, tt.dir)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{"", "id ASC extra", "id SIDEWAYS"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q): expected error", in)
		}
	}
}
