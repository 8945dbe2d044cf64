package proctor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codigloo/contestd/internal/domain"
	"github.com/codigloo/contestd/internal/errors"
	"github.com/codigloo/contestd/internal/event"
	"github.com/codigloo/contestd/internal/proctor"
)

func TestService_RecordRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	s := proctor.NewService(proctor.Config{EventBus: event.NewBus()})

	err := s.Record(context.Background(), proctor.RecordRequest{
		Kind: domain.ProctorTabSwitch,
	})
	require.True(t, errors.IsCode(err, errors.CodeInvalidArgument), "attempt id is required")

	err = s.Record(context.Background(), proctor.RecordRequest{
		AttemptID: "a1",
		Kind:      domain.ProctorKind("screenshot"),
	})
	require.True(t, errors.IsCode(err, errors.CodeInvalidArgument), "unknown kinds are refused")
}
