package newsletter

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/flavorshare/internal/model"
	"github.com/hitoshi/flavorshare/internal/repository"
)

type mockNewsletterRepo struct {
	subscribeFn func(ctx context.Context, email string) (bool, error)
}

func (m *mockNewsletterRepo) Subscribe(ctx context.Context, email string) (bool, error) {
	if m.subscribeFn != nil {
		return m.subscribeFn(ctx, email)
	}
	return true, nil
}

var _ repository.NewsletterRepository = (*mockNewsletterRepo)(nil)

func TestSubscribe(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		created bool
		wantErr bool
	}{
		{"新規登録", "reader@example.com", true, false},
		{"登録済みでも成功", "reader@example.com", false, false},
		{"形式不正", "not-an-email", true, true},
		{"空文字", "   ", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			repo := &mockNewsletterRepo{
				subscribeFn: func(_ context.Context, email string) (bool, error) {
					got = email
					return tt.created, nil
				},
			}
			svc := NewService(repo)

			err := svc.Subscribe(context.Background(), tt.email)
			if tt.wantErr {
				var apiErr *model.APIError
				if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidEmail {
					t.Fatalf("err = %v, want INVALID_EMAIL", err)
				}
				if got != "" {
					t.Error("repository must not be called for invalid email")
				}
				return
			}
			if err != nil {
				t.Fatalf("Subscribe returned error: %v", err)
			}
			if got != tt.email {
				t.Errorf("stored email = %q, want %q", got, tt.email)
			}
		})
	}
}

func TestSubscribe_NormalizesCase(t *testing.T) {
	var got string
	repo := &mockNewsletterRepo{
		subscribeFn: func(_ context.Context, email string) (bool, error) {
			got = email
			return true, nil
		},
	}

	if err := NewService(repo).Subscribe(context.Background(), " Reader@Example.COM "); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if got != "reader@example.com" {
		t.Errorf("stored email = %q, want %q", got, "reader@example.com")
	}
}

func TestSubscribe_StorageError(t *testing.T) {
	repo := &mockNewsletterRepo{
		subscribeFn: func(context.Context, string) (bool, error) {
			return false, errors.New("db down")
		},
	}

	if err := NewService(repo).Subscribe(context.Background(), "a@example.com"); err == nil {
		t.Fatal("expected error")
	}
}
