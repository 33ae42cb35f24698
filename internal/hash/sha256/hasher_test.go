package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasherSumDeterministic(t *testing.T) {
	t.Parallel()

	h := New()
	got := h.Sum([]byte("hello world"))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
	assert.Equal(t, got, h.Sum([]byte("hello world")))
}

func TestHasherKeyDependsOnlyOnURL(t *testing.T) {
	t.Parallel()

	h := New()
	a := h.Key("https://new.kenyalaw.org/akn/ke/judgment/kehc/2023/1/eng@2023-01-01")
	b := h.Key("https://new.kenyalaw.org/akn/ke/judgment/kehc/2023/1/eng@2023-01-01")
	c := h.Key("https://new.kenyalaw.org/akn/ke/judgment/kehc/2023/2/eng@2023-01-01")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
