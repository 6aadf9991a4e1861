package check_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ourcaldo/emval/check"
	"github.com/ourcaldo/emval/internal/parse"
	"github.com/ourcaldo/emval/types"
)

func TestDomainChecker_Disposable(t *testing.T) {
	c := check.NewDomainChecker(check.DomainConfig{CheckDisposable: true}, nil)
	ctx := context.Background()

	result := c.Check(ctx, parse.NewEmail("user@mailinator.com"))
	assert.False(t, result.Passed)
	assert.Equal(t, types.CategoryInvalid, result.Category)
	assert.Equal(t, "disposable email domain", result.Details)

	// Subdomains of a listed domain are disposable too.
	result = c.Check(ctx, parse.NewEmail("user@sub.mailinator.com"))
	assert.False(t, result.Passed)

	result = c.Check(ctx, parse.NewEmail("user@gmail.com"))
	assert.True(t, result.Passed)
}

func TestDomainChecker_DisposableDisabled(t *testing.T) {
	c := check.NewDomainChecker(check.DomainConfig{CheckDisposable: false}, nil)
	result := c.Check(context.Background(), parse.NewEmail("user@mailinator.com"))
	assert.True(t, result.Passed)
}

func TestDomainChecker_TypoSuggestion(t *testing.T) {
	c := check.NewDomainChecker(check.DomainConfig{CheckTypos: true, TypoThreshold: 2}, nil)
	ctx := context.Background()

	tests := []struct {
		email      string
		suggestion string
	}{
		{"user@gmial.com", "gmail.com"},
		{"user@gmal.com", "gmail.com"},
		{"user@yaho.com", "yahoo.com"},
		{"user@outlok.com", "outlook.com"},
		{"user@gmail.com", ""},
		{"user@mycompany.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := c.Check(ctx, parse.NewEmail(tt.email))
			assert.True(t, result.Passed, "a typo suspicion never fails the email")
			assert.Equal(t, tt.suggestion, result.Suggestion)
			if tt.suggestion != "" {
				assert.Equal(t, "possible typo in domain", result.Details)
			}
		})
	}
}

func TestDomainChecker_InvalidEmailSkipped(t *testing.T) {
	c := check.NewDomainChecker(check.DomainConfig{CheckDisposable: true}, nil)
	result := c.Check(context.Background(), parse.NewEmail("not-an-email"))
	assert.False(t, result.Passed)
	assert.Equal(t, types.CategoryInvalid, result.Category)
}
