package main

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"
)

func lintSource(t *testing.T, l *linter, name, src string) {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	l.lintAST(name, fset, file)
}

func TestLintMarkers(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name: "valid",
			src:  "package q\nconst QOk = `--sql 3f0c2a8e-6d41-4b7a-9e25-8c1d7f4b2a60\nselect 1;`\n",
		},
		{
			name:    "missing marker",
			src:     "package q\nconst QBad = `select payload from campaign_drafts;`\n",
			wantMsg: "missing or invalid",
		},
		{
			name:    "ddl needs a marker too",
			src:     "package q\nconst QTable = \"create table t (id int);\"\n",
			wantMsg: "missing or invalid",
		},
		{
			name: "not sql",
			src:  "package q\nconst Label = \"campaign drafts\"\n",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLinter()
			lintSource(t, l, tc.name+".go", tc.src)
			if tc.wantMsg == "" {
				if len(l.violations) != 0 {
					t.Fatalf("unexpected violations: %+v", l.violations)
				}
				return
			}
			if len(l.violations) != 1 || !strings.Contains(l.violations[0].message, tc.wantMsg) {
				t.Fatalf("violations = %+v, want one containing %q", l.violations, tc.wantMsg)
			}
		})
	}
}

func TestLintReusedMarkerAcrossFiles(t *testing.T) {
	l := newLinter()
	lintSource(t, l, "a.go", "package q\nconst QA = `--sql 6a9d5e02-f3b8-4c17-8d64-2e0b9a7c13f5\ndelete from t;`\n")
	lintSource(t, l, "b.go", "package q\nconst QB = `--sql 6a9d5e02-f3b8-4c17-8d64-2e0b9a7c13f5\nselect 1;`\n")
	if l.statements != 2 {
		t.Fatalf("statements = %d", l.statements)
	}
	if len(l.violations) != 1 || l.violations[0].name != "QB" || !strings.Contains(l.violations[0].message, "QA") {
		t.Fatalf("violations = %+v", l.violations)
	}
}
