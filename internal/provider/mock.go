package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"studio/server/internal/model"

	"github.com/google/uuid"
)

// MockAdapter answers without leaving the process. Prompts containing
// "simulate_error" fail with a network error.
type MockAdapter struct {
	Delay time.Duration
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{Delay: 1200 * time.Millisecond}
}

func (m *MockAdapter) Generate(ctx context.Context, in GenerateInput) (GenerateOutput, *Error) {
	if err := waitCancelable(ctx, m.Delay); err != nil {
		return GenerateOutput{}, networkError(err)
	}
	if strings.Contains(in.Prompt, "simulate_error") {
		return GenerateOutput{}, networkError(errors.New("mock simulate_error"))
	}
	ext := "png"
	if in.Variant == model.VariantVideo {
		ext = "mp4"
	}
	return GenerateOutput{
		URL:   fmt.Sprintf("https://mock.studio.local/%s/%s.%s", in.Variant, uuid.NewString(), ext),
		Shape: "mock",
	}, nil
}

func waitCancelable(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
