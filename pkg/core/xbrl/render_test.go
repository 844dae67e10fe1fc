package xbrl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "  ", ""},
		{"paragraphs", "<p>one</p>\n\n<p>  two   words </p>", "one\ntwo words"},
		{"inline stays on one line", "<p>net <b>sales</b> rose</p>", "net sales rose"},
		{"line breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"table rows", "<table><tr><td>x</td><td> y </td></tr><tr></tr><tr><th>z</th></tr></table>", "x | y\nz"},
		{"table without cells", "<table><caption>only caption</caption></table>", "only caption"},
		{"nested table", "<table><tr><td>outer</td><td><table><tr><td>in</td></tr></table></td></tr></table>", "outer | in"},
		{"paragraphs inside a cell", "<table><tr><td><p>第1期</p><p>2020年3月</p></td><td>100</td></tr></table>", "第1期 2020年3月 | 100"},
		{"break inside a cell", "<table><tr><th>売上高<br/>(百万円)</th><td>1,234</td></tr></table>", "売上高 (百万円) | 1,234"},
		{"text around table", "<p>before</p><table><tr><td>1</td></tr></table><p>after</p>", "before\n1\nafter"},
		{"scripts dropped", "<p>keep</p><script>var x = 1;</script>", "keep"},
		{"full width space", "<p>事業等の　リスク</p>", "事業等の リスク"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderHTML(tt.in))
		})
	}
}

func TestDecodePayload(t *testing.T) {
	assert.Equal(t, "<p>a&b</p>", DecodePayload("&lt;p&gt;a&amp;amp;b&lt;/p&gt;"))
	assert.Equal(t, "<p>x</p> &lt;", DecodePayload("<![CDATA[<p>x</p>]]> &amp;amp;lt;"))
	assert.Equal(t, "open", DecodePayload("<![CDATA[open"))
}
