package incident

import "testing"

func TestParseAlert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"full payload", `{"type":"Port Scan","severity":"medium","ip":"1.2.3.4"}`, false},
		{"severity optional", `{"type":"Port Scan"}`, false},
		{"missing type", `{"severity":"high"}`, true},
		{"empty type", `{"type":""}`, true},
		{"not json", `not json`, true},
		{"empty body", ``, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			alert, err := ParseAlert([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAlert(%q) succeeded, want error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlert: %v", err)
			}
			if alert.Type != "Port Scan" {
				t.Errorf("Type = %q, want Port Scan", alert.Type)
			}
			if string(alert.Raw) != tt.raw {
				t.Errorf("Raw = %s, want input preserved verbatim", alert.Raw)
			}
		})
	}
}

func TestParseAlert_CopiesRaw(t *testing.T) {
	t.Parallel()

	buf := []byte(`{"type":"Port Scan"}`)
	alert, err := ParseAlert(buf)
	if err != nil {
		t.Fatalf("ParseAlert: %v", err)
	}
	buf[2] = 'X'
	if string(alert.Raw) != `{"type":"Port Scan"}` {
		t.Errorf("Raw = %s, caller mutation leaked in", alert.Raw)
	}
}

func TestStatusNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from   Status
		want   Status
		wantOK bool
	}{
		{StatusInvestigating, StatusRemediating, true},
		{StatusRemediating, StatusResolved, true},
		{StatusResolved, "", false},
		{Status("bogus"), "", false},
	}

	for _, tt := range tests {
		got, ok := tt.from.next()
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("next(%q) = (%q, %v), want (%q, %v)", tt.from, got, ok, tt.want, tt.wantOK)
		}
	}
}
