package auth

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	require.Equal(t, "ada", sanitizeInput("  ada  "))
	require.Equal(t, "scriptalert(1)/script", sanitizeInput("<script>alert(1)</script>"))
	require.Len(t, sanitizeInput(strings.Repeat("a", 300)), 255)
}

func TestSanitizeInputKeepsRunesWhole(t *testing.T) {
	// 200 two-byte runes = 400 bytes; a cut at byte 255 would land mid-rune.
	got := sanitizeInput(strings.Repeat("é", 200))
	require.True(t, utf8.ValidString(got))
	require.Len(t, got, 254)
}

func TestValidateRegisterFields(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(in *RegisterInput)
		wantErr string
	}{
		{"short first name", func(in *RegisterInput) { in.FirstName = "A" }, "first name"},
		{"digits in last name", func(in *RegisterInput) { in.LastName = "L0velace" }, "last name"},
		{"short username", func(in *RegisterInput) { in.Username = "ab" }, "username"},
		{"bad email", func(in *RegisterInput) { in.Email = "ada@@example" }, "email"},
		{"short phone", func(in *RegisterInput) { in.Phone = "1234" }, "phone"},
		{"no upper-case in password", func(in *RegisterInput) { in.Password = "sup3rsecret" }, "password"},
		{"short secret key", func(in *RegisterInput) { in.SecretKey = "abc" }, "secret key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRegister()
			tc.mutate(&in)
			msgs := validateRegisterFields(in)
			require.Len(t, msgs, 1)
			require.Contains(t, msgs[0], tc.wantErr)
		})
	}

	require.Empty(t, validateRegisterFields(validRegister()))
}

func TestCheckPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		strength string
		score    int
	}{
		{"", "none", 0},
		{"abc", "weak", 1},
		{"abcdefgh", "weak", 2},
		{"Abcdefgh", "medium", 3},
		{"Abcdefg1", "strong", 4},
		{"Abcdefg1!", "very_strong", 5},
	}
	for _, tc := range cases {
		t.Run(tc.strength+"/"+tc.password, func(t *testing.T) {
			got := CheckPasswordStrength(tc.password)
			require.Equal(t, tc.strength, got.Strength)
			require.Equal(t, tc.score, got.Score)
		})
	}

	got := CheckPasswordStrength("abcdefgh")
	require.Contains(t, got.Suggestions, "include upper-case letters")
	require.Contains(t, got.Suggestions, "include numbers")
}
