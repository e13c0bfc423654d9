package core

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"math/big"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

const passwordCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomPassword generates the initial password mailed to a newly registered
// account.
func RandomPassword(length int) string {
	max := big.NewInt(int64(len(passwordCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			log.Fatalf("core.RandomPassword: %v", err)
		}
		b[i] = passwordCharset[n.Int64()]
	}
	return string(b)
}

// MakeResetToken generates an opaque high-entropy password-reset token. The
// token is a bare random value stored server-side with an expiry timestamp,
// not a signed payload.
func MakeResetToken() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		log.Fatalf("core.MakeResetToken: %v", err)
	}
	return hex.EncodeToString(b)
}

// Getwd tries to find the project root.
// go-test changes the working directory to the test package being run during tests,
// which breaks asset lookups; walk up until a directory carrying go.mod is found.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
