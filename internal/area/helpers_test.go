package area

import (
	"testing"

	"goviper/domain/expression"
	"goviper/internal/rank"

	"github.com/stretchr/testify/require"
)

func transformInput(t *testing.T, m *expression.Matrix) Input {
	t.Helper()
	tr, err := rank.Transform(m.Dense())
	require.NoError(t, err)
	return Input{Transformed: tr, Genes: m.Genes(), Samples: m.Samples()}
}
