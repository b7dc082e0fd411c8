// Package catalog holds the site's static content: services, careers, products,
// portfolio, clients and technologies, loaded from YAML embedded in the binary.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var dataFS embed.FS

// ErrServiceNotFound is returned when no service has the requested id.
var ErrServiceNotFound = errors.New("catalog: service not found")

// Service is one offering rendered at /services/{id}.
type Service struct {
	ID               string   `yaml:"id" json:"id"`
	Title            string   `yaml:"title" json:"title"`
	Theme            string   `yaml:"theme" json:"theme"`
	ShortDescription string   `yaml:"short_description" json:"short_description"`
	FullDescription  string   `yaml:"full_description" json:"full_description"`
	Images           []string `yaml:"images" json:"images"`
	Features         []string `yaml:"features" json:"features"`
	Benefits         []string `yaml:"benefits" json:"benefits"`
	Technologies     []string `yaml:"technologies" json:"technologies,omitempty"`
	Process          []string `yaml:"process" json:"process,omitempty"`
}

// Job is an open position on the careers page.
type Job struct {
	ID           int      `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Department   string   `yaml:"department" json:"department"`
	Location     string   `yaml:"location" json:"location"`
	Type         string   `yaml:"type" json:"type"`
	Experience   string   `yaml:"experience" json:"experience"`
	Featured     bool     `yaml:"featured" json:"featured"`
	Description  string   `yaml:"description" json:"description"`
	Requirements []string `yaml:"requirements" json:"requirements"`
	Benefits     []string `yaml:"benefits" json:"benefits"`
}

// Perk is a company-wide benefit shown on the careers page.
type Perk struct {
	Title       string `yaml:"title" json:"title"`
	Theme       string `yaml:"theme" json:"theme"`
	Description string `yaml:"description" json:"description"`
}

type Product struct {
	ID          int      `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Category    string   `yaml:"category" json:"category"`
	Description string   `yaml:"description" json:"description"`
	Features    []string `yaml:"features" json:"features"`
	Featured    bool     `yaml:"featured" json:"featured"`
	Badge       string   `yaml:"badge" json:"badge,omitempty"`
}

type Project struct {
	ID           int      `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Category     string   `yaml:"category" json:"category"`
	Description  string   `yaml:"description" json:"description"`
	Technologies []string `yaml:"technologies" json:"technologies"`
	Featured     bool     `yaml:"featured" json:"featured"`
}

type Client struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Industry    string `yaml:"industry" json:"industry"`
	Theme       string `yaml:"theme" json:"theme"`
	Description string `yaml:"description" json:"description"`
}

type Technology struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
	Color       string `yaml:"color" json:"color"`
	Proficiency int    `yaml:"proficiency" json:"proficiency"`
	Featured    bool   `yaml:"featured" json:"featured"`
}

// Palette is the static style lookup for a theme id.
type Palette struct {
	Primary    string `yaml:"primary" json:"primary"`
	Accent     string `yaml:"accent" json:"accent"`
	Background string `yaml:"background" json:"background"`
}

// Catalog is the loaded, read-only content set.
type Catalog struct {
	Services     []Service
	Departments  []string
	Jobs         []Job
	Perks        []Perk
	Products     []Product
	Portfolio    []Project
	Clients      []Client
	Technologies []Technology

	themes    map[string]Palette
	serviceIx map[string]int
}

type servicesFile struct {
	Services []Service `yaml:"services"`
}

type careersFile struct {
	Departments []string `yaml:"departments"`
	Jobs        []Job    `yaml:"jobs"`
	Perks       []Perk   `yaml:"perks"`
}

type showcaseFile struct {
	Products     []Product    `yaml:"products"`
	Portfolio    []Project    `yaml:"portfolio"`
	Clients      []Client     `yaml:"clients"`
	Technologies []Technology `yaml:"technologies"`
}

type themesFile struct {
	Themes map[string]Palette `yaml:"themes"`
}

// Load parses the embedded catalog and checks its cross references.
func Load() (*Catalog, error) {
	var (
		services servicesFile
		careers  careersFile
		showcase showcaseFile
		themes   themesFile
	)
	for name, dst := range map[string]any{
		"data/services.yaml": &services,
		"data/careers.yaml":  &careers,
		"data/showcase.yaml": &showcase,
		"data/themes.yaml":   &themes,
	} {
		if err := decode(name, dst); err != nil {
			return nil, err
		}
	}

	c := &Catalog{
		Services:     services.Services,
		Departments:  careers.Departments,
		Jobs:         careers.Jobs,
		Perks:        careers.Perks,
		Products:     showcase.Products,
		Portfolio:    showcase.Portfolio,
		Clients:      showcase.Clients,
		Technologies: showcase.Technologies,
		themes:       themes.Themes,
		serviceIx:    make(map[string]int, len(services.Services)),
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// MustLoad returns the process-wide catalog and panics if the embedded data is broken.
func MustLoad() *Catalog {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load()
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultCat
}

func decode(name string, dst any) error {
	raw, err := dataFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("catalog: read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("catalog: parse %s: %w", name, err)
	}
	return nil
}

func (c *Catalog) index() error {
	for i, svc := range c.Services {
		if svc.ID == "" {
			return fmt.Errorf("catalog: service %d has no id", i)
		}
		if _, dup := c.serviceIx[svc.ID]; dup {
			return fmt.Errorf("catalog: duplicate service id %q", svc.ID)
		}
		if _, ok := c.themes[svc.Theme]; !ok {
			return fmt.Errorf("catalog: service %q uses unknown theme %q", svc.ID, svc.Theme)
		}
		c.serviceIx[svc.ID] = i
	}
	return nil
}

// ServiceByID resolves a /services/{id} identifier.
func (c *Catalog) ServiceByID(id string) (Service, error) {
	i, ok := c.serviceIx[id]
	if !ok {
		return Service{}, ErrServiceNotFound
	}
	return c.Services[i], nil
}

// RelatedServices returns up to n services other than id, in catalog order.
func (c *Catalog) RelatedServices(id string, n int) []Service {
	out := []Service{}
	for _, svc := range c.Services {
		if len(out) >= n {
			break
		}
		if svc.ID != id {
			out = append(out, svc)
		}
	}
	return out
}

// FeaturedJobs returns the highlighted openings in catalog order.
func (c *Catalog) FeaturedJobs() []Job {
	var out []Job
	for _, job := range c.Jobs {
		if job.Featured {
			out = append(out, job)
		}
	}
	return out
}

// JobsByDepartment filters openings. "" and "All" return every job.
func (c *Catalog) JobsByDepartment(department string) []Job {
	if department == "" || department == "All" {
		out := make([]Job, len(c.Jobs))
		copy(out, c.Jobs)
		return out
	}
	out := []Job{}
	for _, job := range c.Jobs {
		if job.Department == department {
			out = append(out, job)
		}
	}
	return out
}

// TechnologiesByCategory groups technologies, preserving catalog order within a group.
func (c *Catalog) TechnologiesByCategory() map[string][]Technology {
	out := make(map[string][]Technology)
	for _, tech := range c.Technologies {
		out[tech.Category] = append(out[tech.Category], tech)
	}
	return out
}

// TechnologyCategories lists the categories in first-seen order.
func (c *Catalog) TechnologyCategories() []string {
	seen := map[string]bool{}
	var out []string
	for _, tech := range c.Technologies {
		if !seen[tech.Category] {
			seen[tech.Category] = true
			out = append(out, tech.Category)
		}
	}
	return out
}

// Theme returns the palette for a static theme id.
func (c *Catalog) Theme(id string) (Palette, bool) {
	p, ok := c.themes[id]
	return p, ok
}

// ThemeIDs lists the known theme ids in sorted order.
func (c *Catalog) ThemeIDs() []string {
	ids := make([]string, 0, len(c.themes))
	for id := range c.themes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
