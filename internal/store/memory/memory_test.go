package memory

import (
	"context"
	"errors"
	"testing"

	"federation-service/internal/auth"
	"federation-service/internal/store"
)

var _ store.UserStore = (*Store)(nil)

func account(provider, id string) auth.ExternalAccount {
	return auth.ExternalAccount{OAuthName: provider, AccountID: id, AccessToken: "tok"}
}

func TestLookups(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := auth.NewUser("Ada@X.com", "hash", account("google", "1"))
	if err := s.Create(ctx, u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	byEmail, err := s.GetByEmail(ctx, "ada@x.com")
	if err != nil || byEmail == nil || byEmail.ID != u.ID {
		t.Fatalf("GetByEmail() = %v, %v", byEmail, err)
	}

	byAccount, err := s.GetByOAuthAccount(ctx, "google", "1")
	if err != nil || byAccount == nil || byAccount.ID != u.ID {
		t.Fatalf("GetByOAuthAccount() = %v, %v", byAccount, err)
	}

	missing, err := s.GetByOAuthAccount(ctx, "github", "1")
	if err != nil || missing != nil {
		t.Fatalf("GetByOAuthAccount(missing) = %v, %v; want nil, nil", missing, err)
	}

	if byID, _ := s.Get(ctx, u.ID); byID == nil || byID.CreatedAt.IsZero() {
		t.Fatalf("Get() = %v", byID)
	}
}

func TestReturnedUsersAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := auth.NewUser("a@x.com", "hash", account("google", "1"))
	_ = s.Create(ctx, u)

	got, _ := s.Get(ctx, u.ID)
	got.PutOAuthAccount(account("github", "9"))
	got.IsActive = false

	again, _ := s.Get(ctx, u.ID)
	if len(again.OAuthAccounts()) != 1 || !again.IsActive {
		t.Fatalf("stored user mutated without Update: %+v", again)
	}
	if owner, _ := s.GetByOAuthAccount(ctx, "github", "9"); owner != nil {
		t.Fatal("unsaved account is visible")
	}
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := auth.NewUser("a@x.com", "hash", account("google", "1"))
	if err := s.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{
			name: "create with taken email",
			op:   func() error { return s.Create(ctx, auth.NewUser("A@x.com", "h")) },
			want: store.ErrDuplicateEmail,
		},
		{
			name: "create with taken oauth account",
			op:   func() error { return s.Create(ctx, auth.NewUser("b@x.com", "h", account("google", "1"))) },
			want: store.ErrDuplicateOAuthAccount,
		},
		{
			name: "update claiming another user's account",
			op: func() error {
				other := auth.NewUser("c@x.com", "h")
				if err := s.Create(ctx, other); err != nil {
					return err
				}
				other.PutOAuthAccount(account("google", "1"))
				return s.Update(ctx, other)
			},
			want: store.ErrDuplicateOAuthAccount,
		},
		{
			name: "update unknown user",
			op:   func() error { return s.Update(ctx, auth.NewUser("d@x.com", "h")) },
			want: store.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.op(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	owner, _ := s.GetByOAuthAccount(ctx, "google", "1")
	if owner == nil || owner.ID != first.ID {
		t.Fatalf("google/1 owner changed: %v", owner)
	}
}

func TestUpdateReindexesEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := auth.NewUser("old@x.com", "hash")
	_ = s.Create(ctx, u)

	u.Email = "new@x.com"
	if err := s.Update(ctx, u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got, _ := s.GetByEmail(ctx, "old@x.com"); got != nil {
		t.Error("old email still indexed")
	}
	if got, _ := s.GetByEmail(ctx, "new@x.com"); got == nil {
		t.Error("new email not indexed")
	}
}

func TestUpdateKeepsAccountsMissingFromUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := auth.NewUser("a@x.com", "hash", account("google", "1"), account("github", "9"))
	_ = s.Create(ctx, u)

	partial := auth.NewUser("a@x.com", "hash", auth.ExternalAccount{OAuthName: "google", AccountID: "1", AccessToken: "fresh"})
	partial.ID = u.ID
	if err := s.Update(ctx, partial); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	owner, _ := s.GetByOAuthAccount(ctx, "github", "9")
	if owner == nil || owner.ID != u.ID {
		t.Fatal("github account was unlinked by Update")
	}
	if len(owner.OAuthAccounts()) != 2 {
		t.Fatalf("accounts = %d, want 2", len(owner.OAuthAccounts()))
	}
	if g, _ := owner.OAuthAccount(auth.AccountKey{OAuthName: "google", AccountID: "1"}); g.AccessToken != "fresh" {
		t.Errorf("google token = %q, want fresh", g.AccessToken)
	}
}
