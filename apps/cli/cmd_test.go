package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/angeraphael/parrainage/core/referral"
	"github.com/angeraphael/parrainage/services/email"
	"github.com/angeraphael/parrainage/tests"
)

func setup(repo *testutil.FakeRepository) (*commandLine, *bytes.Buffer) {
	out := new(bytes.Buffer)
	return &commandLine{
		svc: referral.NewService(repo, emailsvc.NewConsoleServiceMock(), 5),
		out: out,
	}, out
}

type cliTest struct {
	name    string
	args    []string // without program name
	prompt  string   // token typed at the prompt
	wantErr error
	want    string
}

func checkOutput(t *testing.T, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "want",
		ToFile:   "got",
		Context:  2,
	})
	t.Errorf("unexpected output:\n%s", diff)
}

func Test_commandLine(t *testing.T) {
	repo := testutil.NewFakeRepository()
	repo.SetTree("awa", testutil.ScenarioTree())
	repo.SetTree("moussa", testutil.Node(2, "Moussa", "Fall", 1,
		testutil.Node(4, "Fatou", "Sarr", 2,
			testutil.Node(5, "Khady", "Ndiaye", 3,
				testutil.Node(6, "Ibou", "Faye", 3),
				testutil.Node(7, "Mame", "Gueye", 2),
			),
		),
	))
	origReadPassword := readPasswordFunc
	defer func() { readPasswordFunc = origReadPassword }()

	tests := []cliTest{
		{
			name: "scenario",
			args: []string{"arbre", "--token", "awa"},
			want: `Membres: 4
Niveaux: 2

▼ Awa Diop · Niveau 0
  ▼ Moussa Fall · Niveau 1
    • Fatou Sarr · Niveau 2
  • Ousmane Ba · Niveau 1
`,
		},
		{
			name: "collapsed beyond depth 2",
			args: []string{"arbre", "--token", "moussa"},
			want: `Membres: 5
Niveaux: 3

▼ Moussa Fall · Niveau 1
  ▼ Fatou Sarr · Niveau 2
    ▶ Khady Ndiaye · Niveau 3 (VIP) (+2)
`,
		},
		{
			name: "expand all",
			args: []string{"arbre", "--token", "moussa", "--tout"},
			want: `Membres: 5
Niveaux: 3

▼ Moussa Fall · Niveau 1
  ▼ Fatou Sarr · Niveau 2
    ▼ Khady Ndiaye · Niveau 3 (VIP)
      • Ibou Faye · Niveau 3 (VIP)
      • Mame Gueye · Niveau 2
`,
		},
		{
			name: "no tree",
			args: []string{"arbre", "--token", "newbie"},
			want: "Membres: 0\nNiveaux: 0\nAucun arbre de parrainage disponible\n",
		},
		{
			name:   "stats with prompted token",
			args:   []string{"stats"},
			prompt: "awa\n",
			want:   "Membres: 4\nNiveaux: 2\n",
		},
		{name: "empty prompt", args: []string{"stats"}, wantErr: errNoToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(int) ([]byte, error) { return []byte(tt.prompt), nil }
			cli, out := setup(repo)
			cmd := newRootCmd(cli)
			cmd.SetArgs(tt.args)

			err := cmd.ExecuteContext(context.Background())
			if tt.wantErr != nil {
				if errors.Cause(err) != tt.wantErr {
					t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Execute() unexpected error = %v", err)
			}
			checkOutput(t, out.String(), tt.want)
		})
	}
}

func Test_commandLine_depth(t *testing.T) {
	repo := testutil.NewFakeRepository()
	cli, _ := setup(repo)
	cmd := newRootCmd(cli)
	cmd.SetArgs([]string{"stats", "--token", "awa", "--profondeur", "2"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}
	if got := repo.LastDepth(t); got != 2 {
		t.Errorf("depth = %d, want 2", got)
	}
}

func Test_commandLine_upstreamError(t *testing.T) {
	errDown := errors.New("upstream down")
	repo := testutil.NewFakeRepository()
	repo.Err = errDown
	cli, out := setup(repo)
	cmd := newRootCmd(cli)
	cmd.SetArgs([]string{"arbre", "--token", "awa"})

	err := cmd.Execute()
	if errors.Cause(err) != errDown {
		t.Errorf("Execute() error = %v, want %v", err, errDown)
	}
	if strings.TrimSpace(out.String()) != "" {
		t.Errorf("unexpected output: %q", out.String())
	}
}
