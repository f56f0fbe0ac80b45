package checks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCombineLaw(t *testing.T) {
	errA := errors.New("field denied")
	errB := errors.New("type denied")
	fieldErr := Failure(errA)
	typeErr := Failure(errB)

	t.Run("success is identity", func(t *testing.T) {
		require.Equal(t, fieldErr, Combine(Success(), fieldErr))
		require.Equal(t, fieldErr, Combine(fieldErr, Success()))
		require.True(t, Combine(Success(), Success()).IsSuccess())
	})

	t.Run("two failures concatenate, first operand first", func(t *testing.T) {
		combined := Combine(fieldErr, typeErr)
		require.False(t, combined.IsSuccess())
		require.Equal(t, []error{errA, errB}, combined.Errors())
	})

	t.Run("nil errors dropped", func(t *testing.T) {
		require.True(t, Failure(nil, nil).IsSuccess())
		require.Len(t, Failure(nil, errA).Errors(), 1)
	})
}

func TestResultAsError(t *testing.T) {
	require.NoError(t, Success().AsError())

	errA := errors.New("a")
	require.ErrorIs(t, Failure(errA).AsError(), errA)

	errB := errors.New("b")
	joined := Failure(errA, errB).AsError()
	require.ErrorIs(t, joined, errA)
	require.ErrorIs(t, joined, errB)
}

func TestMetadataCoordinate(t *testing.T) {
	require.Equal(t, "User.ssn", Metadata{Name: "ssnChecker", TypeName: "User", FieldName: "ssn"}.Coordinate())
	require.Equal(t, "User", Metadata{Name: "userChecker", TypeName: "User"}.Coordinate())
}

func TestViewRestriction(t *testing.T) {
	view := NewView("User", []string{"id", "owner"}, map[string]any{
		"id":    "u1",
		"owner": map[string]any{"id": "u9", "team": nil},
		"ssn":   "123-45-6789",
	})

	t.Run("declared field accessible", func(t *testing.T) {
		got, err := view.Get("id")
		require.NoError(t, err)
		require.Equal(t, "u1", got)
	})

	t.Run("undeclared field rejected even when present", func(t *testing.T) {
		_, err := view.Get("ssn")
		require.ErrorIs(t, err, ErrUndeclaredField)
	})

	t.Run("path traversal", func(t *testing.T) {
		got, err := view.GetPath("owner.id")
		require.NoError(t, err)
		require.Equal(t, "u9", got)
	})

	t.Run("null mid-path yields nil", func(t *testing.T) {
		got, err := view.GetPath("owner.team.name")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("empty view", func(t *testing.T) {
		empty := NewView("User", nil, nil)
		require.True(t, empty.IsEmpty())
		_, err := empty.Get("id")
		require.ErrorIs(t, err, ErrUndeclaredField)
	})
}
