// Package content holds the static portfolio copy: hero lines, about text,
// statistics, projects, resume and contact links. The default document is
// embedded; a YAML file with the same shape can replace it.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var defaultDocument []byte

// ErrNoSections is returned for a document without any section headings.
var ErrNoSections = errors.New("content: no sections defined")

type Portfolio struct {
	Owner    string   `yaml:"owner"`
	Motion   Motion   `yaml:"motion"`
	Hero     Hero     `yaml:"hero"`
	About    About    `yaml:"about"`
	Projects Projects `yaml:"projects"`
	Resume   Resume   `yaml:"resume"`
	Contact  Contact  `yaml:"contact"`
}

// Motion tunes the reveal animations.
type Motion struct {
	TypingRate      time.Duration `yaml:"typing_rate"`
	CounterDuration time.Duration `yaml:"counter_duration"`
	RevealThreshold float64       `yaml:"reveal_threshold"`
}

type Hero struct {
	Title    []string `yaml:"title"`
	Subtitle string   `yaml:"subtitle"`
	Lines    []string `yaml:"lines"`
}

type Image struct {
	Src      string `yaml:"src"`
	Alt      string `yaml:"alt"`
	Featured bool   `yaml:"featured"`
	Position string `yaml:"position"`
}

type Stat struct {
	Label  string `yaml:"label"`
	Value  int    `yaml:"value"`
	Suffix string `yaml:"suffix"`
}

type About struct {
	Number     string   `yaml:"number"`
	Heading    string   `yaml:"heading"`
	Paragraphs []string `yaml:"paragraphs"`
	Images     []Image  `yaml:"images"`
	Stats      []Stat   `yaml:"stats"`
}

type Project struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

type Projects struct {
	Number   string    `yaml:"number"`
	Heading  string    `yaml:"heading"`
	Subtitle string    `yaml:"subtitle"`
	Preview  int       `yaml:"preview"`
	Items    []Project `yaml:"items"`
}

// Visible returns the projects shown with the list collapsed or expanded.
func (p Projects) Visible(showAll bool) []Project {
	if showAll || p.Preview <= 0 || len(p.Items) <= p.Preview {
		return p.Items
	}
	return p.Items[:p.Preview]
}

// Collapsible reports whether the list has a "See More" toggle.
func (p Projects) Collapsible() bool {
	return p.Preview > 0 && len(p.Items) > p.Preview
}

type Resume struct {
	Number   string `yaml:"number"`
	Heading  string `yaml:"heading"`
	Subtitle string `yaml:"subtitle"`
	Title    string `yaml:"title"`
	Blurb    string `yaml:"blurb"`
	Link     string `yaml:"link"`
}

type Link struct {
	Label string `yaml:"label"`
	Icon  string `yaml:"icon"`
	Href  string `yaml:"href"`
}

type Contact struct {
	Number   string   `yaml:"number"`
	Heading  string   `yaml:"heading"`
	Subtitle string   `yaml:"subtitle"`
	Links    []Link   `yaml:"links"`
	Footer   []string `yaml:"footer"`
}

// Default returns the embedded portfolio.
func Default() (*Portfolio, error) {
	return Parse(defaultDocument)
}

// Load reads a portfolio from path, or the embedded one when path is empty.
func Load(path string) (*Portfolio, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML portfolio and fills motion defaults.
func Parse(raw []byte) (*Portfolio, error) {
	var p Portfolio
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if p.About.Heading == "" && p.Projects.Heading == "" && p.Resume.Heading == "" && p.Contact.Heading == "" {
		return nil, ErrNoSections
	}
	if p.Motion.TypingRate == 0 {
		p.Motion.TypingRate = 150 * time.Millisecond
	}
	if p.Motion.CounterDuration == 0 {
		p.Motion.CounterDuration = 2 * time.Second
	}
	if p.Motion.RevealThreshold <= 0 || p.Motion.RevealThreshold > 1 {
		p.Motion.RevealThreshold = 0.1
	}
	return &p, nil
}

var printer = message.NewPrinter(language.English)

// FormatStat renders a counter value with digit grouping and its suffix,
// e.g. "1,200+".
func FormatStat(value int, suffix string) string {
	return printer.Sprintf("%d", value) + suffix
}
