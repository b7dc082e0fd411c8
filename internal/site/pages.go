package site

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/optimumsoft/optimumsoft-web/internal/catalog"
	"github.com/optimumsoft/optimumsoft-web/internal/reveal"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

// relatedServices is how many other services the service page links to.
const relatedServices = 3

// ContactInfo is the company contact block shown in the footer.
type ContactInfo struct {
	Email   string
	Phone   string
	Address string
}

// DefaultContact is the published OptimumSoft contact block.
var DefaultContact = ContactInfo{
	Email:   "info@optimumsoft.com",
	Phone:   "+880 123 456 7890",
	Address: "Dhaka, Bangladesh",
}

// Value is one entry of the about page's company values.
type Value struct {
	Title       string
	Description string
}

var companyValues = []Value{
	{Title: "Innovation", Description: "We embrace new ideas and technologies to solve problems creatively."},
	{Title: "Excellence", Description: "We hold every deliverable to the highest standard of quality."},
	{Title: "Integrity", Description: "We build trust through honesty and transparency."},
	{Title: "Collaboration", Description: "We work as partners with our clients and each other."},
}

// PageData is the root value every page template receives.
type PageData struct {
	Title   string
	Nav     []NavItem
	Current string
	Contact ContactInfo
	Data    any
	Year    int
}

// TechCategory groups technologies under one heading.
type TechCategory struct {
	Name  string
	Items []catalog.Technology
}

// Handler renders site pages and the catalog JSON API.
type Handler struct {
	catalog *catalog.Catalog
	pages   map[string]*template.Template
	stagger time.Duration
	contact ContactInfo
	now     func() time.Time
	logger  *logging.Logger
}

// Option customises a Handler.
type Option func(*Handler)

// WithStagger overrides the per-item reveal delay step.
func WithStagger(d time.Duration) Option {
	return func(h *Handler) { h.stagger = d }
}

// WithContact overrides the footer contact block.
func WithContact(c ContactInfo) Option {
	return func(h *Handler) { h.contact = c }
}

// WithClock overrides the clock used for the footer year.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// NewHandler parses the embedded templates. Each page gets its own template set
// so the shared "content" block can be redefined per page.
func NewHandler(c *catalog.Catalog, logger *logging.Logger, opts ...Option) (*Handler, error) {
	if c == nil {
		return nil, errors.New("site: catalog is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		catalog: c,
		pages:   map[string]*template.Template{},
		stagger: reveal.DefaultStagger,
		contact: DefaultContact,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	funcs := template.FuncMap{
		"delay": func(i int) int64 { return reveal.DelayMillis(i, h.stagger) },
		"theme": func(id string) catalog.Palette {
			p, _ := c.Theme(id)
			return p
		},
		"path":      Build,
		"threshold": func() float64 { return reveal.DefaultThreshold },
	}
	for _, page := range []string{"home", "portfolio", "clients", "about", "products", "technologies", "careers", "service", "notfound"} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("site: parse %s: %w", page, err)
		}
		h.pages[page] = tmpl
	}
	return h, nil
}

// ServePage resolves the request path against the route table and renders the
// matching page. Unknown paths and unknown service ids render the not-found view.
func (h *Handler) ServePage(w http.ResponseWriter, r *http.Request) {
	match, ok := Resolve(r.URL.Path)
	if !ok {
		h.NotFound(w, r)
		return
	}

	switch match.Route.Name {
	case RouteHome:
		h.render(w, http.StatusOK, "home", "Home", match.Route.Path, struct {
			Services []catalog.Service
		}{h.catalog.Services})
	case RoutePortfolio:
		h.render(w, http.StatusOK, "portfolio", "Portfolio", match.Route.Path, struct {
			Portfolio []catalog.Project
		}{h.catalog.Portfolio})
	case RouteClients:
		h.render(w, http.StatusOK, "clients", "Clients", match.Route.Path, struct {
			Clients []catalog.Client
		}{h.catalog.Clients})
	case RouteAbout:
		h.render(w, http.StatusOK, "about", "About", match.Route.Path, struct {
			Values []Value
		}{companyValues})
	case RouteProducts:
		h.render(w, http.StatusOK, "products", "Products", match.Route.Path, struct {
			Products []catalog.Product
		}{h.catalog.Products})
	case RouteTechnologies:
		h.render(w, http.StatusOK, "technologies", "Technologies", match.Route.Path, struct {
			Categories []TechCategory
		}{h.techCategories()})
	case RouteCareers:
		department := r.URL.Query().Get("department")
		if department == "" {
			department = "All"
		}
		h.render(w, http.StatusOK, "careers", "Careers", match.Route.Path, struct {
			Departments []string
			Department  string
			Jobs        []catalog.Job
			Perks       []catalog.Perk
		}{h.catalog.Departments, department, h.catalog.JobsByDepartment(department), h.catalog.Perks})
	case RouteService:
		svc, err := h.catalog.ServiceByID(match.Params["id"])
		if err != nil {
			h.NotFound(w, r)
			return
		}
		h.render(w, http.StatusOK, "service", svc.Title, r.URL.Path, struct {
			Service catalog.Service
			Related []catalog.Service
		}{svc, h.catalog.RelatedServices(svc.ID, relatedServices)})
	default:
		h.NotFound(w, r)
	}
}

// NotFound renders the not-found view with a link back to the home page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "notfound", "Not Found", r.URL.Path, nil)
}

func (h *Handler) render(w http.ResponseWriter, status int, page, title, current string, data any) {
	tmpl, ok := h.pages[page]
	if !ok {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", PageData{
		Title:   title,
		Nav:     Nav(),
		Current: current,
		Contact: h.contact,
		Data:    data,
		Year:    h.now().Year(),
	})
	if err != nil {
		h.logger.Error("failed to render page", "page", page, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) techCategories() []TechCategory {
	grouped := h.catalog.TechnologiesByCategory()
	out := make([]TechCategory, 0, len(grouped))
	for _, name := range h.catalog.TechnologyCategories() {
		out = append(out, TechCategory{Name: name, Items: grouped[name]})
	}
	return out
}

// ListServices handles GET /api/services
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Services)
}

// GetService handles GET /api/services/{id}
func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.catalog.ServiceByID(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "service not found"})
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

type careersResponse struct {
	Departments []string       `json:"departments"`
	Jobs        []catalog.Job  `json:"jobs"`
	Perks       []catalog.Perk `json:"perks"`
}

// ListCareers handles GET /api/careers?department=
func (h *Handler) ListCareers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, careersResponse{
		Departments: h.catalog.Departments,
		Jobs:        h.catalog.JobsByDepartment(r.URL.Query().Get("department")),
		Perks:       h.catalog.Perks,
	})
}

// ListRoutes handles GET /api/routes
func (h *Handler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Routes())
}

// RevealScriptPath is where the layout loads the scroll-reveal script from.
const RevealScriptPath = "/assets/reveal.js"

// HandleRevealJS serves the scroll-reveal script.
func (h *Handler) HandleRevealJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(reveal.Script)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
