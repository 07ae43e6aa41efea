package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToVectorLiteral(t *testing.T) {
	require.Equal(t, "[]", toVectorLiteral(nil))
	require.Equal(t, "[0.1,0.2,0.3]", toVectorLiteral([]float32{0.1, 0.2, 0.3}))
}
