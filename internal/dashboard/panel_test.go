package dashboard

import (
	"strings"
	"testing"

	"github.com/aristath/retox/internal/engine"
)

func labels(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Label
	}
	return out
}

func newTestPanel(name string) (*Panel, *int) {
	redraws := 0
	return newPanel(name, func() { redraws++ }), &redraws
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		kind engine.Kind
		want string
	}{
		{engine.KindRunTests, "Run Tests"},
		{engine.KindInstallDeps, "Install Dependencies"},
		{engine.KindSdistMake, "Make sdist"},
		{engine.Kind("custom-step"), "custom-step"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.kind); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestGlyph(t *testing.T) {
	tests := []struct {
		status engine.Status
		want   string
	}{
		{engine.StatusPass, "✓"},
		{engine.StatusCommandsFailed, "✗"},
		{engine.StatusInstallFailed, "✗"},
		{engine.StatusNone, "none"},
		{engine.Status("2"), "2"},
	}
	for _, tt := range tests {
		if got := Glyph(tt.status); got != tt.want {
			t.Errorf("Glyph(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestPanel_StartStop(t *testing.T) {
	p, redraws := newTestPanel("py38")
	env := engine.NewEnvironment("py38")
	act := engine.NewActivity(engine.KindRunTests, env)

	p.Start(engine.KindRunTests, act)
	if got := labels(p.Running()); len(got) != 1 || got[0] != "Run Tests" {
		t.Fatalf("running = %v", got)
	}
	if p.Running()[0].Owner != "py38" {
		t.Errorf("owner = %q, want py38", p.Running()[0].Owner)
	}

	env.SetStatus(engine.StatusPass)
	p.Stop(engine.KindRunTests, act)

	if len(p.Running()) != 0 {
		t.Errorf("running should be empty, got %v", labels(p.Running()))
	}
	if got := labels(p.Completed()); len(got) != 1 || got[0] != "✓ Run Tests" {
		t.Errorf("completed = %v", got)
	}
	if *redraws != 2 {
		t.Errorf("redraws = %d, want one per mutation", *redraws)
	}
}

func TestPanel_DuplicateStartIsSkipped(t *testing.T) {
	p, _ := newTestPanel("py38")
	act := engine.NewActivity(engine.KindInstallDeps, engine.NewEnvironment("py38"))

	p.Start(engine.KindInstallDeps, act)
	p.Start(engine.KindInstallDeps, act)

	if n := len(p.Running()); n != 1 {
		t.Errorf("running has %d entries, want 1", n)
	}
}

func TestPanel_StopUnknownStillCompletes(t *testing.T) {
	p, _ := newTestPanel("py39")
	env := engine.NewEnvironment("py39")
	env.SetStatus(engine.StatusCommandsFailed)

	p.Stop(engine.KindRunTests, engine.NewActivity(engine.KindRunTests, env))

	if got := labels(p.Completed()); len(got) != 1 || got[0] != "✗ Run Tests" {
		t.Errorf("completed = %v", got)
	}
}

func TestPanel_PairInAtMostOneList(t *testing.T) {
	p, _ := newTestPanel("py38")
	env := engine.NewEnvironment("py38")
	act := engine.NewActivity(engine.KindRunTests, env)

	for i := 0; i < 3; i++ {
		p.Start(engine.KindRunTests, act)
		if len(p.Completed()) != 0 {
			t.Fatalf("iteration %d: restarted kind still listed as completed", i)
		}
		p.Stop(engine.KindRunTests, act)
		if len(p.Running()) != 0 || len(p.Completed()) != 1 {
			t.Fatalf("iteration %d: running=%v completed=%v", i, labels(p.Running()), labels(p.Completed()))
		}
	}
}

func TestPanel_NumberedActivitiesAccumulate(t *testing.T) {
	p, _ := newTestPanel("py38")
	env := engine.NewEnvironment("py38")

	for seq := 1; seq <= 3; seq++ {
		act := engine.NewActivity(engine.KindRunTests, env)
		act.Seq = seq
		p.Start(engine.KindRunTests, act)
		if seq == 3 {
			env.SetStatus(engine.StatusPass)
		}
		p.Stop(engine.KindRunTests, act)
	}

	want := []string{"none Run Tests 1", "none Run Tests 2", "✓ Run Tests 3"}
	if got := labels(p.Completed()); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("completed = %v, want %v", got, want)
	}

	// Rerunning one numbered command moves only that entry back
	again := engine.NewActivity(engine.KindRunTests, env)
	again.Seq = 2
	p.Start(engine.KindRunTests, again)
	if got := labels(p.Running()); len(got) != 1 || got[0] != "Run Tests 2" {
		t.Errorf("running = %v, want [Run Tests 2]", got)
	}
	if n := len(p.Completed()); n != 2 {
		t.Errorf("completed has %d entries, want 2", n)
	}
}

func TestPanel_FinishMovesLaggards(t *testing.T) {
	tests := []struct {
		name   string
		status engine.Status
		color  TitleColor
	}{
		{"pass", engine.StatusPass, TitlePass},
		{"fail", engine.StatusCommandsFailed, TitleFail},
		{"unset", engine.StatusNone, TitleFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPanel("py38")
			env := engine.NewEnvironment("py38")
			p.Start(engine.KindInstallDeps, engine.NewActivity(engine.KindInstallDeps, env))
			p.Start(engine.KindRunTests, engine.NewActivity(engine.KindRunTests, env))

			p.Finish(tt.status)

			if len(p.Running()) != 0 {
				t.Errorf("running should be empty after Finish, got %v", labels(p.Running()))
			}
			got := labels(p.Completed())
			if len(got) != 2 || !strings.HasSuffix(got[0], "Install Dependencies") || !strings.HasSuffix(got[1], "Run Tests") {
				t.Errorf("completed = %v, want both entries in order", got)
			}
			if p.Color() != tt.color {
				t.Errorf("color = %v, want %v", p.Color(), tt.color)
			}
		})
	}
}

func TestPanel_ResetKeepsName(t *testing.T) {
	p, _ := newTestPanel("py310")
	env := engine.NewEnvironment("py310")
	act := engine.NewActivity(engine.KindRunTests, env)
	p.Start(engine.KindRunTests, act)
	p.Start(engine.KindCreate, act)
	p.Stop(engine.KindCreate, act)
	p.Finish(engine.StatusPass)

	p.Reset()

	if len(p.Running()) != 0 || len(p.Completed()) != 0 {
		t.Error("Reset should clear both lists")
	}
	if p.Name() != "py310" {
		t.Errorf("Name() = %q, want py310", p.Name())
	}
	if p.Color() != TitleNeutral {
		t.Errorf("color = %v, want neutral", p.Color())
	}
}

func TestDashboard_FindAndRedraw(t *testing.T) {
	d := New([]string{"py38", "py39", "py38"})

	if n := len(d.Panels()); n != 2 {
		t.Fatalf("panels = %d, want 2", n)
	}
	if _, ok := d.Find("py39"); !ok {
		t.Error("py39 should be found")
	}
	if _, ok := d.Find("pypy"); ok {
		t.Error("pypy should not be found")
	}

	p, _ := d.Find("py38")
	p.Reset()
	p.Reset()
	d.Redraw()

	select {
	case <-d.Redraws():
	default:
		t.Fatal("expected a pending redraw")
	}
	select {
	case <-d.Redraws():
		t.Error("redraw requests should be coalesced")
	default:
	}
}

func TestDashboard_View(t *testing.T) {
	d := New([]string{"py38", "py39"})
	p, _ := d.Find("py38")
	env := engine.NewEnvironment("py38")
	env.SetStatus(engine.StatusPass)
	act := engine.NewActivity(engine.KindRunTests, env)
	p.Start(engine.KindRunTests, act)
	p.Stop(engine.KindRunTests, act)

	out := d.View(80, 12)

	for _, want := range []string{"py38", "py39", "Running", "Completed", "✓ Run Tests"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if d.View(0, 0) != "" {
		t.Error("zero-size view should be empty")
	}
}

func TestPanel_ViewLongTitleStaysOnOneRow(t *testing.T) {
	d := New([]string{"py311-django42-postgres"})
	p, _ := d.Find("py311-django42-postgres")

	out := p.View(16, 8)

	lines := strings.Split(out, "\n")
	if len(lines) != 8 {
		t.Fatalf("view has %d rows, want 8:\n%s", len(lines), out)
	}
	// Border, title, then the Running header on the third row
	if !strings.Contains(lines[2], "Running") {
		t.Errorf("title wrapped, row 2 = %q:\n%s", lines[2], out)
	}
	if !strings.Contains(lines[1], "…") {
		t.Errorf("title row should be truncated, got %q", lines[1])
	}
}
