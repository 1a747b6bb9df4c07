package detection

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader("person\nbicycle\n car \n\nmotorbike\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "bicycle", "car", "", "motorbike"}, labels)

	assert.Equal(t, "car", LabelFor(labels, 2))
	assert.Equal(t, "class_3", LabelFor(labels, 3))
	assert.Equal(t, "class_99", LabelFor(labels, 99))
	assert.Equal(t, "class_-1", LabelFor(labels, -1))
}

func TestReadLabelsEmpty(t *testing.T) {
	_, err := ReadLabels(strings.NewReader("\n\n"))
	assert.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestReadLabelsReaderError(t *testing.T) {
	_, err := ReadLabels(failingReader{})
	assert.ErrorContains(t, err, "disk gone")
}

func TestLoadLabelsMissingFile(t *testing.T) {
	_, err := LoadLabels("/nonexistent/coco.names")
	assert.Error(t, err)
}

func TestCenterBox(t *testing.T) {
	assert.Equal(t, [4]int{75, 50, 125, 150}, CenterBox(0.5, 0.5, 0.25, 0.5, 200, 200))
	// clamped to the frame
	assert.Equal(t, [4]int{0, 0, 25, 25}, CenterBox(0.0, 0.0, 0.5, 0.5, 100, 100))
	assert.Equal(t, [4]int{75, 75, 100, 100}, CenterBox(1.0, 1.0, 0.5, 0.5, 100, 100))
}
