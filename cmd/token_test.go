package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/storefront/internal"
)

func TestPrintDevToken(t *testing.T) {
	userID := uuid.New()
	out := bytes.Buffer{}
	require.NoError(t, printDevToken(&out, "dev-secret", userID.String(), time.Hour))

	token, err := internal.VerifyToken(context.Background(), strings.TrimSpace(out.String()), "dev-secret")
	require.NoError(t, err)
	subject, err := token.Claims.GetSubject()
	require.NoError(t, err)
	assert.Equal(t, userID.String(), subject)

	out.Reset()
	require.NoError(t, printDevToken(&out, "dev-secret", "", time.Hour))
	assert.NotEmpty(t, strings.TrimSpace(out.String()))

	assert.Error(t, printDevToken(&out, "dev-secret", "not-a-uuid", time.Hour))
}
