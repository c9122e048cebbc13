package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/ernie/ctfbot/internal/domain"
)

func TestRelativeAge(t *testing.T) {
	t.Parallel()

	now := time.Unix(1800000000, 0)
	tests := []struct {
		name string
		ago  int64
		want string
	}{
		{"seconds", 59, "less than an hour"},
		{"just under an hour", 3599, "less than an hour"},
		{"one hour", 3600, "1 hour"},
		{"hours", 5 * 3600, "5 hours"},
		{"days and hours", 2*24*3600 + 3*3600, "2 days, 3 hours"},
		{"exact day omits hours", 24 * 3600, "1 day"},
		{"months", 65 * 24 * 3600, "2 months, 5 days"},
		{"years", 370 * 24 * 3600, "1 year, 5 days"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := relativeAge(now.Unix()-tt.ago, now); got != tt.want {
				t.Errorf("relativeAge(-%ds) = %q, want %q", tt.ago, got, tt.want)
			}
		})
	}
}

func TestBuildShortStatus(t *testing.T) {
	t.Parallel()
	now := time.Unix(1800000000, 0)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		got := buildShortStatus(nil, now)
		if got != "*There are currently no running CTFs*" {
			t.Errorf("buildShortStatus(nil) = %q", got)
		}
	})

	t.Run("running and finished", func(t *testing.T) {
		t.Parallel()
		running := domain.NewCTF("T1", "sums", "Summer CTF")
		solved := domain.NewChallenge("C1", "T1", "pwn1", "pwn")
		solved.MarkSolved([]string{"alice"}, 1700000000)
		running.AddChallenge(*solved)
		running.AddChallenge(*domain.NewChallenge("C2", "T1", "web1", "web"))

		finished := domain.NewCTF("T2", "wint", "Winter CTF")
		finished.Finished = true
		finished.FinishedOn = now.Unix() - 2*24*3600

		got := buildShortStatus([]*domain.CTF{running, finished}, now)
		if !strings.Contains(got, "*Current CTFs:*") || !strings.Contains(got, "*Finished CTFs:*") {
			t.Fatalf("sections missing:\n%s", got)
		}
		if !strings.Contains(got, "#sums : _Summer CTF_ [1 solved / 2 total]") {
			t.Errorf("running line wrong:\n%s", got)
		}
		if !strings.Contains(got, "(finished 2 days ago)") {
			t.Errorf("finish age missing:\n%s", got)
		}
	})

	t.Run("finished without date", func(t *testing.T) {
		t.Parallel()
		ctf := domain.NewCTF("T1", "sums", "Summer CTF")
		ctf.Finished = true

		got := buildShortStatus([]*domain.CTF{ctf}, now)
		if !strings.Contains(got, "(finished)") || strings.Contains(got, "ago") {
			t.Errorf("bare finished marker wrong:\n%s", got)
		}
	})
}
