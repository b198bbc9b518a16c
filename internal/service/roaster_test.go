package service

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/suanmei/xhs-roast-go/internal/constants"
	"github.com/suanmei/xhs-roast-go/internal/service/ai"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name    string
	text    string
	err     error
	prompts []string
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Generate(ctx context.Context, prompt string) (ai.ProviderResult, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return ai.ProviderResult{}, p.err
	}
	return ai.ProviderResult{Text: p.text, Model: p.name + "-model"}, nil
}

func (p *fakeProvider) Ping(ctx context.Context) bool { return p.err == nil }

func TestRoastServiceFirstProviderWins(t *testing.T) {
	primary := &fakeProvider{name: "primary", text: "主力的吐槽"}
	backup := &fakeProvider{name: "backup", text: "备用的吐槽"}
	svc := NewRoastService([]ai.ChatProvider{primary, backup}, zap.NewNop())

	got, err := svc.Generate(context.Background(), "博主内容")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got != "主力的吐槽" {
		t.Errorf("got %q", got)
	}
	if len(backup.prompts) != 0 {
		t.Errorf("backup provider called %d times", len(backup.prompts))
	}
}

func TestRoastServiceFallsThroughChain(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: stderrors.New("quota exceeded")}
	backup := &fakeProvider{name: "backup", text: "备用的吐槽"}
	svc := NewRoastService([]ai.ChatProvider{primary, backup}, zap.NewNop())

	got, err := svc.Generate(context.Background(), "博主内容")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got != "备用的吐槽" {
		t.Errorf("got %q", got)
	}
}

func TestRoastServiceAllProvidersFail(t *testing.T) {
	failure := stderrors.New("last failure")
	svc := NewRoastService([]ai.ChatProvider{
		&fakeProvider{name: "a", err: stderrors.New("first failure")},
		&fakeProvider{name: "b", err: failure},
	}, zap.NewNop())

	_, err := svc.Generate(context.Background(), "博主内容")

	if !stderrors.Is(err, failure) {
		t.Errorf("err = %v, want last provider's error", err)
	}
}

func TestRoastServiceNoProviders(t *testing.T) {
	svc := NewRoastService(nil, zap.NewNop())

	if _, err := svc.Generate(context.Background(), "内容"); err == nil {
		t.Fatal("expected error with empty chain")
	}
}

func TestRoastServiceTruncatesContent(t *testing.T) {
	provider := &fakeProvider{name: "p", text: "ok"}
	svc := NewRoastService([]ai.ChatProvider{provider}, zap.NewNop())

	huge := strings.Repeat("内", constants.GenerationLimits.MaxContentRunes+5000)
	if _, err := svc.Generate(context.Background(), huge); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	prompt := provider.prompts[0]
	overhead := 2000 // instruction text around the content
	if got := len([]rune(prompt)); got > constants.GenerationLimits.MaxContentRunes+overhead {
		t.Errorf("prompt runes = %d, content not truncated", got)
	}
	if !strings.Contains(prompt, "内") {
		t.Error("content missing from prompt")
	}
}
