package contentcoin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

const (
	defaultBlogName  = "Blog Post Coin"
	defaultImageName = "Image Coin"
	defaultMusicName = "Music Coin"
	unknownValue     = "Unknown"
)

// ContentSource is a closed set: BlogSource, URLSource, ImageSource and
// MusicSource.
type ContentSource interface {
	Kind() ContentKind
	source()
}

// BlogSource is an article that was already scraped.
type BlogSource struct {
	Article ScrapedArticle
}

// URLSource is a blog URL the Normalizer scrapes itself.
type URLSource struct {
	URL string
}

// ImageSource is an uploaded image.
type ImageSource struct {
	Name        string
	Symbol      string
	Description string
	File        *Blob
}

// MusicSource is an uploaded audio track with its cover art.
type MusicSource struct {
	Name        string
	Symbol      string
	Description string
	Audio       *Blob
	Cover       *Blob
}

func (BlogSource) Kind() ContentKind  { return KindBlog }
func (URLSource) Kind() ContentKind   { return KindBlog }
func (ImageSource) Kind() ContentKind { return KindImage }
func (MusicSource) Kind() ContentKind { return KindMusic }

func (BlogSource) source()  {}
func (URLSource) source()   {}
func (ImageSource) source() {}
func (MusicSource) source() {}

// Normalized is the canonical form of a content source.
//
// Binary is the primary upload (image or audio). Cover is only set for music.
// Document.Image is empty until the Publisher fills it in for uploads.
type Normalized struct {
	Document MetadataDocument
	Payload  CoinMetadata
	Binary   *Blob
	Cover    *Blob
	Name     string
	Symbol   string
}

// Normalizer turns content sources into metadata documents.
type Normalizer struct {
	scraper Scraper
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithScraper enables URLSource.
func WithScraper(s Scraper) NormalizerOption {
	return func(n *Normalizer) {
		n.scraper = s
	}
}

func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds the metadata document for src. Only URLSource performs I/O.
func (n *Normalizer) Normalize(ctx context.Context, src ContentSource) (*Normalized, error) {
	switch s := src.(type) {
	case BlogSource:
		return normalizeBlog(s.Article)
	case *BlogSource:
		return normalizeBlog(s.Article)
	case URLSource:
		return n.normalizeURL(ctx, s.URL)
	case *URLSource:
		return n.normalizeURL(ctx, s.URL)
	case ImageSource:
		return normalizeImage(s)
	case *ImageSource:
		return normalizeImage(*s)
	case MusicSource:
		return normalizeMusic(s)
	case *MusicSource:
		return normalizeMusic(*s)
	case nil:
		return nil, &ValidationError{Field: "source", Reason: "is required"}
	default:
		return nil, &ValidationError{Field: "source", Reason: fmt.Sprintf("unsupported source %T", src)}
	}
}

func (n *Normalizer) normalizeURL(ctx context.Context, raw string) (*Normalized, error) {
	if _, err := parseArticleURL(raw); err != nil {
		return nil, err
	}
	if n.scraper == nil {
		return nil, &ValidationError{Field: "url", Reason: "scraping is not configured"}
	}
	article, err := n.scraper.Scrape(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", raw, err)
	}
	if article.URL == "" {
		article.URL = raw
	}
	return normalizeBlog(*article)
}

func normalizeBlog(a ScrapedArticle) (*Normalized, error) {
	u, err := parseArticleURL(a.URL)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(a.Title)
	name := title
	if name == "" {
		name = defaultBlogName
	}
	author := orDefault(a.Author, unknownValue)
	publishDate := orDefault(a.PublishDate, unknownValue)

	doc := MetadataDocument{
		Name:        name,
		Description: "A coin representing the blog post: " + name,
		Image:       a.Image,
		ExternalURL: a.URL,
		Type:        KindBlog,
		Attributes: []Attribute{
			{TraitType: "Author", Value: author},
			{TraitType: "Source", Value: u.Hostname()},
			{TraitType: "Type", Value: "Blog Post"},
			{TraitType: "Original Link", Value: a.URL},
			{TraitType: "Publish Date", Value: publishDate},
		},
		Content: &ContentRef{URI: a.URL, Mime: "text/html"},
	}

	return &Normalized{
		Document: doc,
		Payload: CoinMetadata{
			Type:        KindBlog,
			Title:       title,
			Description: a.Description,
			Image:       a.Image,
			OriginalURL: a.URL,
			Author:      author,
			PublishDate: publishDate,
			Tags:        a.Tags,
			Content:     a.Content,
		},
		Name:   SuggestTokenName(name),
		Symbol: SuggestSymbol(title),
	}, nil
}

func normalizeImage(s ImageSource) (*Normalized, error) {
	if s.File == nil || len(s.File.Data) == 0 {
		return nil, &ValidationError{Field: "image", Reason: "file is required"}
	}
	name := orDefault(s.Name, defaultImageName)
	description := strings.TrimSpace(s.Description)
	if description == "" {
		description = "A coin representing the image: " + name
	}
	symbol := strings.ToUpper(strings.TrimSpace(s.Symbol))

	return &Normalized{
		Document: MetadataDocument{
			Name:        name,
			Description: description,
			Type:        KindImage,
			Attributes: []Attribute{
				{TraitType: "Type", Value: "Image"},
				{TraitType: "Symbol", Value: symbol},
			},
		},
		Payload: CoinMetadata{
			Type:        KindImage,
			Title:       name,
			Description: description,
		},
		Binary: s.File,
		Name:   SuggestTokenName(name),
		Symbol: symbol,
	}, nil
}

func normalizeMusic(s MusicSource) (*Normalized, error) {
	if s.Audio == nil || len(s.Audio.Data) == 0 {
		return nil, &ValidationError{Field: "audio", Reason: "file is required"}
	}
	if s.Cover == nil || len(s.Cover.Data) == 0 {
		return nil, &ValidationError{Field: "cover", Reason: "cover image is required"}
	}
	name := orDefault(s.Name, defaultMusicName)
	description := strings.TrimSpace(s.Description)
	if description == "" {
		description = "A coin representing the track: " + name
	}
	symbol := strings.ToUpper(strings.TrimSpace(s.Symbol))

	return &Normalized{
		Document: MetadataDocument{
			Name:        name,
			Description: description,
			Type:        KindMusic,
			Attributes: []Attribute{
				{TraitType: "Type", Value: "Music"},
				{TraitType: "Symbol", Value: symbol},
			},
		},
		Payload: CoinMetadata{
			Type:        KindMusic,
			Title:       name,
			Description: description,
		},
		Binary: s.Audio,
		Cover:  s.Cover,
		Name:   SuggestTokenName(name),
		Symbol: symbol,
	}, nil
}

func parseArticleURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ValidationError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, &ValidationError{Field: "url", Reason: "cannot be parsed", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Hostname() == "" {
		return nil, &ValidationError{Field: "url", Reason: "must be an absolute http(s) URL"}
	}
	return u, nil
}

// SuggestTokenName trims a title to the 50 characters a token name allows.
func SuggestTokenName(title string) string {
	r := []rune(strings.TrimSpace(title))
	if len(r) > 50 {
		r = r[:50]
	}
	return string(r)
}

// SuggestSymbol takes the first ten characters of a title, upper-cased,
// keeping only letters.
func SuggestSymbol(title string) string {
	r := []rune(title)
	if len(r) > 10 {
		r = r[:10]
	}
	var b strings.Builder
	for _, c := range strings.ToUpper(string(r)) {
		if c >= 'A' && c <= 'Z' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
