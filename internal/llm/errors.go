package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrMalformedOutput means no parse stage could recover a lesson.
	ErrMalformedOutput = errors.New("could not read the generated lesson; please try again")
	// ErrInsufficientBalance means the account cannot pay for more calls.
	// Batches stop scheduling new work when they see it.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTimeout means the generation call ran past its deadline.
	ErrTimeout = errors.New("generation timed out")
)

// Kind classifies a generation failure.
type Kind int

const (
	KindUpstream Kind = iota
	KindTimeout
	KindInsufficientBalance
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindInsufficientBalance:
		return "insufficient_balance"
	default:
		return "upstream"
	}
}

// GenerationError wraps a failure at the generation endpoint.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Is lets errors.Is match the Kind sentinels.
func (e *GenerationError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrInsufficientBalance:
		return e.Kind == KindInsufficientBalance
	}
	return false
}

// IsTerminal reports whether err should stop a batch.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInsufficientBalance)
}

func classify(ctx context.Context, provider string, err error) error {
	wrapped := fmt.Errorf("%s: %w", provider, err)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &GenerationError{Kind: KindTimeout, Err: wrapped}
	case isBalanceError(err):
		return &GenerationError{Kind: KindInsufficientBalance, Err: wrapped}
	default:
		return &GenerationError{Kind: KindUpstream, Err: wrapped}
	}
}

func isBalanceError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusPaymentRequired || apiErr.Type == "insufficient_quota" {
			return true
		}
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			return true
		}
	}
	var se *statusError
	if errors.As(err, &se) {
		if se.Status == http.StatusPaymentRequired {
			return true
		}
		body := strings.ToLower(se.Body)
		return strings.Contains(body, "insufficient") && (strings.Contains(body, "credit") || strings.Contains(body, "balance") || strings.Contains(body, "quota"))
	}
	return false
}
