package parser

import (
	"fmt"
	"strings"
)

var sampleParagraphs = []string{
	"The provincial government announced a new transit funding plan on Tuesday morning in the capital.",
	"Officials said the money would pay for additional buses and longer service hours across the region.",
	"Opposition members questioned whether the plan could be delivered before the next municipal election.",
	"Riders interviewed at the central station said they welcomed any improvement to the crowded routes.",
}

func articleHTML(wrapperOpen, wrapperClose string, extra string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Transit plan approved - City | Example News</title>")
	b.WriteString(`<meta property="og:image" content="//cdn.example.com/lead.jpg">`)
	b.WriteString(`<meta property="article:published_time" content="2025-03-04T14:30:00Z">`)
	b.WriteString("</head><body>")
	b.WriteString(`<nav><p class="menu">Home News Sports Weather Opinion Contact Us Today</p></nav>`)
	b.WriteString(extra)
	b.WriteString(wrapperOpen)
	for _, p := range sampleParagraphs {
		fmt.Fprintf(&b, "<p>%s</p>", p)
	}
	b.WriteString(`<p>Subscribe to our newsletter for the latest headlines delivered every single day.</p>`)
	b.WriteString(wrapperClose)
	b.WriteString("</body></html>")
	return b.String()
}
