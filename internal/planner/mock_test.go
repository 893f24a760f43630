package planner

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/studio-cli/internal/model"
)

// --- Generator mock ---

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req GenRequest) (string, model.TokenUsage, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Get(1).(model.TokenUsage), args.Error(2)
}

// scriptedGenerator returns canned responses in order, cycling on the last
// one. Useful when the sequence matters more than argument matching.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
}

func (g *scriptedGenerator) Generate(_ context.Context, _ GenRequest) (string, model.TokenUsage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	g.calls++
	if i >= len(g.responses) {
		i = len(g.responses) - 1
	}
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	return g.responses[i], model.TokenUsage{InputTokens: 10, OutputTokens: 10}, err
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// --- FallbackRecorder capture ---

type captureRecorder struct {
	mu     sync.Mutex
	events []model.FallbackEvent
}

func (r *captureRecorder) Record(_ context.Context, ev model.FallbackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *captureRecorder) byComponent(component string) []model.FallbackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FallbackEvent
	for _, ev := range r.events {
		if ev.Component == component {
			out = append(out, ev)
		}
	}
	return out
}

func testWorkspace() model.Workspace {
	return model.Workspace{
		VerticalID:     "personal_finance",
		BrandTone:      "direct, no hype",
		CPMBaseline:    12.5,
		TargetLanguage: "en",
	}
}
