package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"marketing", KindMarketing, false},
		{"notice", KindNotice, false},
		{"", "", true},
		{"Marketing", "", true},
		{"newsletter", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKindValidate(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		data    Data
		wantErr string
	}{
		{"marketing complete", KindMarketing, Data{Title: "T", Message: "M"}, ""},
		{"marketing with cta", KindMarketing, Data{Title: "T", Message: "M", CTALink: "https://x", CTAText: "Go"}, ""},
		{"marketing missing title", KindMarketing, Data{Message: "M"}, "title"},
		{"marketing missing message", KindMarketing, Data{Title: "T"}, "message"},
		{"notice complete", KindNotice, Data{Message: "M"}, ""},
		{"notice missing message", KindNotice, Data{}, "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kind.Validate(tt.data)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestRenderMarketing(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(KindMarketing, Data{
		Title:   "Big News",
		Message: "Something happened.",
		CTALink: "https://example.com/go",
		CTAText: "Read it",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Big News")
	assert.Contains(t, out, "Something happened.")
	assert.Contains(t, out, `href="https://example.com/go"`)
	assert.Contains(t, out, "Read it")
}

func TestRenderMarketingWithoutCTA(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(KindMarketing, Data{Title: "T", Message: "M"})
	require.NoError(t, err)

	assert.NotContains(t, out, "<a href")
}

func TestRenderMarketingDefaultCTAText(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(KindMarketing, Data{Title: "T", Message: "M", CTALink: "https://x"})
	require.NoError(t, err)

	assert.Contains(t, out, "Learn more")
}

func TestRenderValidatesContract(t *testing.T) {
	r := NewRenderer()

	_, err := r.Render(KindMarketing, Data{Message: "no title"})
	assert.Error(t, err)
}

func TestRenderNotice(t *testing.T) {
	r := NewRenderer()

	out, err := r.Render(KindNotice, Data{Message: "Maintenance tonight."})
	require.NoError(t, err)
	assert.Contains(t, out, "Maintenance tonight.")
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer()
	d := Data{Title: "T", Message: "M"}

	first, err := r.Render(KindMarketing, d)
	require.NoError(t, err)
	second, err := r.Render(KindMarketing, d)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDefaultSubject(t *testing.T) {
	assert.Equal(t, "Big News", KindMarketing.DefaultSubject(Data{Title: "Big News"}))
	assert.Empty(t, KindMarketing.DefaultSubject(Data{}))
	assert.Empty(t, KindNotice.DefaultSubject(Data{Message: "M"}))
}

func TestPlainText(t *testing.T) {
	r := NewRenderer()

	assert.Equal(t, "T\n\nM", r.PlainText(KindMarketing, Data{Title: "T", Message: "M"}))
	assert.Equal(t, "T\n\nM\n\nhttps://x", r.PlainText(KindMarketing, Data{Title: "T", Message: "M", CTALink: "https://x"}))
	assert.Equal(t, "M", r.PlainText(KindNotice, Data{Message: "M"}))
}
