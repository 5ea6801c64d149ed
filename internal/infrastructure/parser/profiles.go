package parser

import "NewsRelay/internal/scanner"

// GenericProfile is used for sources without a registered profile.
const GenericProfile = "generic"

var genericLocators = []string{
	"article p",
	"main p",
	`[class*="content"] p`,
	`[class*="article"] p`,
	`[class*="story"] p`,
	`[class*="post"] p`,
	`[class*="body"] p`,
	".entry-content p",
	".post-content p",
	".article-content p",
	".story-content p",
}

// RegisterBuiltins adds the bundled site profiles.
func RegisterBuiltins(reg *scanner.Registry) {
	reg.Register(scanner.Profile{Name: GenericProfile})
	reg.Register(scanner.Profile{
		Name: "cbc",
		Content: []string{
			".story-content p",
			".story p",
			"article .content p",
			".articleBody p",
			`div[data-component="TextBlock"] p`,
		},
		Headline: []string{"h1.detailHeadline", "h1.headline", ".story-headline h1", "article h1"},
		Author:   []string{".byline-author", ".author-name", ".byline", `span[itemprop="author"]`, ".story-byline"},
		Date:     []string{"time[datetime]", `meta[property="article:published_time"]`, `meta[name="publishdate"]`},
		Image:    []string{".leadImage img", ".story-image img", "figure.image img"},

		MinParagraphs: 1,
		AlphaRatio:    0.7,
	})
	reg.Register(scanner.Profile{
		Name: "globalnews",
		Content: []string{
			".l-article__body p",
			".c-detail__body p",
			"article p",
			".entry-content p",
			"article .content p",
			".post-content p",
			".content p",
		},
		Headline: []string{"h1.c-detail__headline", "h1.l-article__headline", ".entry-title h1", "article h1", ".headline h1"},
		Author:   []string{".c-byline__author", ".l-article__byline .author", ".author-name", ".byline-author"},
		Date:     []string{".c-byline__date time", ".l-article__byline time", "time[datetime]"},
		Image:    []string{".l-article__featured img", ".c-detail__media img"},

		MinParagraphs: 1,
		AlphaRatio:    0.7,
	})
}
