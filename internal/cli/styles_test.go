package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatters(t *testing.T) {
	assert.Contains(t, FormatSuccess("saved"), "saved")
	assert.Contains(t, FormatSuccess("saved"), SuccessIcon)
	assert.Contains(t, FormatError("failed"), ErrorIcon)
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("note"), "note")
	assert.Contains(t, FormatTitle("Categories"), "Categories")
	assert.Contains(t, RenderBox("Seed", "3 created"), "3 created")
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"NAME", "KIND"},
		[][]string{
			{"Pessoal", "system"},
			{"Mercado", "custom"},
			{"Short"},
		},
	)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[1], "Pessoal")
	assert.Contains(t, lines[1], "system")
	// Second column starts at the same offset on every row.
	assert.Equal(t, strings.Index(lines[1], "system"), strings.Index(lines[2], "custom"))
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, "Repairing tasks")

	p.Update(0, 0)
	assert.Equal(t, 0, p.Done())

	for i := 1; i <= 3; i++ {
		p.Update(i, 3)
	}
	p.Update(2, 3)
	assert.Equal(t, 3, p.Done())
	assert.Contains(t, buf.String(), "Repairing tasks")
}
