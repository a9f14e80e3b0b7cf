// Package seed loads the starter content into an empty catalog: an admin
// user, the two globals, a home page, sample products and components.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/catalog/internal/store"
)

// Default admin credentials used when Options leaves them empty.
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "admin123"
)

// Writer is the subset of the document store client the seeder uses.
// *docstore.Client satisfies it.
type Writer interface {
	Count(ctx context.Context, collection string, where map[string]any) (int, error)
	Create(ctx context.Context, collection string, data map[string]any) (*store.Document, error)
	UpdateGlobal(ctx context.Context, slug string, patch map[string]any) (*store.GlobalDoc, error)
}

// Options configures a seed run.
type Options struct {
	AdminEmail    string
	AdminPassword string
	Logger        *slog.Logger
}

// Summary reports what a seed run created.
type Summary struct {
	Skipped    bool
	Users      int
	Globals    int
	Pages      int
	Products   int
	Components int
}

// Run seeds w unless the pages collection already holds a document, in
// which case it returns a Summary with Skipped set.
func Run(ctx context.Context, w Writer, opts Options) (*Summary, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AdminEmail == "" {
		opts.AdminEmail = DefaultAdminEmail
	}
	if opts.AdminPassword == "" {
		opts.AdminPassword = DefaultAdminPassword
	}
	logger := opts.Logger

	n, err := w.Count(ctx, "pages", nil)
	if err != nil {
		return nil, fmt.Errorf("checking existing pages: %w", err)
	}
	if n > 0 {
		logger.Info("database already seeded, skipping")
		return &Summary{Skipped: true}, nil
	}

	logger.Info("seeding database")
	sum := &Summary{}

	if _, err := w.Create(ctx, "users", map[string]any{
		"email":    opts.AdminEmail,
		"password": opts.AdminPassword,
		"name":     "Admin User",
	}); err != nil {
		return sum, fmt.Errorf("creating admin user: %w", err)
	}
	sum.Users++

	for _, g := range globals() {
		if _, err := w.UpdateGlobal(ctx, g.slug, g.data); err != nil {
			return sum, fmt.Errorf("updating global %s: %w", g.slug, err)
		}
		sum.Globals++
	}

	if _, err := w.Create(ctx, "pages", homePage()); err != nil {
		return sum, fmt.Errorf("creating home page: %w", err)
	}
	sum.Pages++

	for _, p := range products() {
		if _, err := w.Create(ctx, "products", p); err != nil {
			return sum, fmt.Errorf("creating product %v: %w", p["slug"], err)
		}
		sum.Products++
	}

	for _, c := range components() {
		if _, err := w.Create(ctx, "components", c); err != nil {
			return sum, fmt.Errorf("creating component %v: %w", c["slug"], err)
		}
		sum.Components++
	}

	logger.Info("database seeded",
		"users", sum.Users,
		"globals", sum.Globals,
		"pages", sum.Pages,
		"products", sum.Products,
		"components", sum.Components,
		"admin_email", opts.AdminEmail,
	)
	return sum, nil
}

type globalSeed struct {
	slug string
	data map[string]any
}

func globals() []globalSeed {
	return []globalSeed{
		{"site-settings", map[string]any{
			"siteName": "shadcn/ui Registry Starter",
			"tagline":  "Beautiful UI components built with Radix UI and Tailwind CSS",
		}},
		{"navigation", map[string]any{
			"mainMenu": []any{
				link("Home", "/"),
				link("Components", "/registry"),
				link("Tokens", "/tokens"),
				link("Demo", "/demo/dashboard"),
			},
			"footerLinks": []any{
				link("Documentation", "/docs"),
				link("GitHub", "https://github.com"),
				link("Twitter", "https://twitter.com"),
			},
		}},
	}
}

func link(label, href string) map[string]any {
	return map[string]any{"label": label, "link": href}
}

// paragraph builds a single-paragraph rich text document.
func paragraph(text string) map[string]any {
	return map[string]any{
		"root": map[string]any{
			"type": "root",
			"children": []any{
				map[string]any{
					"type":     "paragraph",
					"children": []any{map[string]any{"text": text}},
				},
			},
		},
	}
}

func homePage() map[string]any {
	return map[string]any{
		"title": "Home",
		"slug":  "home",
		"hero": map[string]any{
			"heading":    "Build your component library",
			"subheading": "Beautifully designed components that you can copy and paste into your apps. Accessible. Customizable. Open Source.",
			"ctaText":    "Get Started",
			"ctaLink":    "/registry",
		},
		"content": paragraph("Welcome to the shadcn/ui registry starter. This template gives you everything you need to build your own component registry."),
		"status":  "published",
	}
}

func products() []map[string]any {
	return []map[string]any{
		{
			"name":        "Acme Prism T-Shirt",
			"slug":        "acme-prism-tshirt",
			"price":       25,
			"description": "A stylish t-shirt with a prism design",
			"category":    "fashion",
			"featured":    true,
			"status":      "active",
		},
		{
			"name":        "Acme Circles T-Shirt",
			"slug":        "acme-circles-tshirt",
			"price":       30,
			"description": "Modern geometric circles design",
			"category":    "fashion",
			"featured":    true,
			"status":      "active",
		},
		{
			"name":        "Acme Drawstring Bag",
			"slug":        "acme-drawstring-bag",
			"price":       15,
			"description": "Practical and stylish drawstring bag",
			"category":    "accessories",
			"featured":    false,
			"status":      "active",
		},
		{
			"name":        "Acme Stacked Sticker",
			"slug":        "acme-stacked-sticker",
			"price":       5,
			"description": "High-quality vinyl sticker",
			"category":    "accessories",
			"featured":    false,
			"status":      "active",
		},
	}
}

func components() []map[string]any {
	list := []map[string]any{
		{
			"name":        "Button",
			"slug":        "button",
			"description": "A versatile button component with multiple variants",
			"category":    "ui",
			"previewCode": `<Button variant="outline">Click me</Button>`,
		},
		{
			"name":        "Card",
			"slug":        "card",
			"description": "A flexible card component for displaying content",
			"category":    "ui",
			"previewCode": "<Card>\n  <CardHeader>\n    <CardTitle>Card Title</CardTitle>\n  </CardHeader>\n  <CardContent>\n    <p>Card content goes here</p>\n  </CardContent>\n</Card>",
		},
		{
			"name":        "Dashboard",
			"slug":        "dashboard",
			"description": "Complete dashboard layout with sidebar and charts",
			"category":    "block",
			"previewCode": "// Dashboard block component",
		},
	}
	for _, c := range list {
		c["documentation"] = paragraph(fmt.Sprintf("Documentation for %s component", c["name"]))
	}
	return list
}
