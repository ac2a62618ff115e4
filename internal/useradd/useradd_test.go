package useradd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/cmsauth/internal/server/config"
	"github.com/dmitrijs2005/cmsauth/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswords(t *testing.T, entries ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(entries) {
			return nil, errors.New("no more input")
		}
		pw := []byte(entries[i])
		i++
		return pw, nil
	}
}

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = repomanager.MemoryDSN
	c.HashMemoryKiB = 64
	c.HashThreads = 1
	return c
}

func TestParseOptions(t *testing.T) {
	o, err := parseOptions([]string{"-d", "postgres://x", "-login", "alice", "-name=Alice A.", "-types", "manager"})
	require.NoError(t, err)
	assert.Equal(t, Options{UserName: "alice", DisplayName: "Alice A.", UserTypes: "manager"}, o)

	_, err = parseOptions([]string{"-name", "nobody"})
	assert.EqualError(t, err, "-login is required")
}

func TestRun_CreatesUser(t *testing.T) {
	stubPasswords(t, "hunter2", "hunter2")

	var out bytes.Buffer
	err := Run(context.Background(), memoryConfig(), []string{"-login", "alice", "-types", "manager"}, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Enter password: ")
	assert.Contains(t, out.String(), "Repeat password: ")
	assert.Contains(t, out.String(), "created user alice")
}

func TestRun_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "hunter2", "hunter3")

	var out bytes.Buffer
	err := Run(context.Background(), memoryConfig(), []string{"-login", "alice"}, &out)
	assert.ErrorIs(t, err, errPasswordMismatch)
	assert.NotContains(t, out.String(), "created user")
}

func TestRun_EmptyPassword(t *testing.T) {
	stubPasswords(t, "", "")

	err := Run(context.Background(), memoryConfig(), []string{"-login", "alice"}, &bytes.Buffer{})
	assert.EqualError(t, err, "password is required")
}

func TestGetPassword_ReadError(t *testing.T) {
	stubPasswords(t)

	_, err := GetPassword(&bytes.Buffer{})
	assert.Error(t, err)
}
