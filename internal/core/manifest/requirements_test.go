package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Empty(t *testing.T) {
	s := Parse("")
	assert.Zero(t, s.Count())
	assert.Zero(t, s.OptionLines)
}

func TestParse_Typical(t *testing.T) {
	content := `# StarPoint dependencies
streamlit>=1.30
pandas==2.2.0

# charts
altair
`
	s := Parse(content)

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, []string{"streamlit", "pandas", "altair"}, s.Names())
	assert.Equal(t, ">=1.30", s.Requirements[0].Spec)
	assert.Equal(t, "==2.2.0", s.Requirements[1].Spec)
	assert.Empty(t, s.Requirements[2].Spec)
}

func TestParse_OptionLines(t *testing.T) {
	content := "--index-url https://pypi.example.com/simple\n-r extra.txt\nrequests\n"
	s := Parse(content)

	assert.Equal(t, 1, s.Count())
	assert.Equal(t, 2, s.OptionLines)
}

func TestParse_ExtrasAndMarkers(t *testing.T) {
	tests := []struct {
		line string
		name string
	}{
		{"uvicorn[standard]>=0.23", "uvicorn"},
		{"pywin32; sys_platform == 'win32'", "pywin32"},
		{"Django >= 4.2", "django"},
		{"pkg @ https://example.com/pkg.whl", "pkg"},
	}

	for _, tt := range tests {
		s := Parse(tt.line)
		assert.Equal(t, 1, s.Count(), tt.line)
		assert.Equal(t, tt.name, s.Requirements[0].Name, tt.line)
	}
}

func TestParse_CRLFAndComments(t *testing.T) {
	s := Parse("streamlit\r\npandas # pinned later\r\n")

	assert.Equal(t, []string{"streamlit", "pandas"}, s.Names())
	assert.Equal(t, "pandas", s.Requirements[1].Raw)
}
