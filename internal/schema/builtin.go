package schema

// Builtin returns the default content model: users, pages, components,
// products and media, plus the site-settings and navigation globals.
func Builtin() *Registry {
	r, err := NewRegistry(builtinCollections(), builtinGlobals())
	if err != nil {
		panic("schema: invalid builtin registry: " + err.Error())
	}
	return r
}

func builtinCollections() []Collection {
	return []Collection{
		{
			Slug:       "users",
			UseAsTitle: "email",
			Auth:       true,
			Fields: []Field{
				{Name: "name", Kind: KindText},
			},
		},
		{
			Slug:       "pages",
			UseAsTitle: "title",
			Fields: []Field{
				{Name: "title", Kind: KindText, Required: true},
				{Name: "slug", Kind: KindText, Required: true, Unique: true},
				{Name: "hero", Kind: KindGroup, Fields: []Field{
					{Name: "heading", Kind: KindText},
					{Name: "subheading", Kind: KindText},
					{Name: "ctaText", Kind: KindText, Label: "CTA Text"},
					{Name: "ctaLink", Kind: KindText, Label: "CTA Link"},
				}},
				{Name: "content", Kind: KindRichText},
				{Name: "status", Kind: KindSelect, Default: "draft", Options: []Option{
					{Label: "Draft", Value: "draft"},
					{Label: "Published", Value: "published"},
				}},
			},
		},
		{
			Slug:       "components",
			UseAsTitle: "name",
			Fields: []Field{
				{Name: "name", Kind: KindText, Required: true},
				{Name: "slug", Kind: KindText, Required: true, Unique: true},
				{Name: "description", Kind: KindTextarea},
				{Name: "category", Kind: KindSelect, Required: true, Options: []Option{
					{Label: "UI", Value: "ui"},
					{Label: "Block", Value: "block"},
					{Label: "Component", Value: "component"},
				}},
				{Name: "previewCode", Kind: KindCode},
				{Name: "documentation", Kind: KindRichText},
			},
		},
		{
			Slug:       "products",
			UseAsTitle: "name",
			Fields: []Field{
				{Name: "name", Kind: KindText, Required: true},
				{Name: "slug", Kind: KindText, Required: true, Unique: true},
				{Name: "price", Kind: KindNumber, Required: true, Min: float64Ptr(0)},
				{Name: "description", Kind: KindTextarea},
				{Name: "image", Kind: KindUpload, RelationTo: "media"},
				{Name: "category", Kind: KindSelect, Options: []Option{
					{Label: "Fashion", Value: "fashion"},
					{Label: "Accessories", Value: "accessories"},
					{Label: "Footwear", Value: "footwear"},
				}},
				{Name: "featured", Kind: KindCheckbox, Default: false},
				{Name: "status", Kind: KindSelect, Default: "draft", Options: []Option{
					{Label: "Active", Value: "active"},
					{Label: "Draft", Value: "draft"},
					{Label: "Archived", Value: "archived"},
				}},
			},
		},
		{
			Slug: "media",
			Upload: &UploadConfig{
				MimeTypes: []string{"image/*"},
				ImageSizes: []ImageSize{
					{Name: "thumbnail", Width: 400, Height: 300},
					{Name: "card", Width: 768, Height: 1024},
					{Name: "tablet", Width: 1024},
				},
			},
			Fields: []Field{
				{Name: "alt", Kind: KindText},
			},
		},
	}
}

func builtinGlobals() []Global {
	return []Global{
		{
			Slug: "site-settings",
			Fields: []Field{
				{Name: "siteName", Kind: KindText, Required: true},
				{Name: "tagline", Kind: KindText},
				{Name: "logo", Kind: KindUpload, RelationTo: "media"},
				{Name: "favicon", Kind: KindUpload, RelationTo: "media"},
				{Name: "socialLinks", Kind: KindGroup, Fields: []Field{
					{Name: "twitter", Kind: KindText},
					{Name: "github", Kind: KindText},
					{Name: "linkedin", Kind: KindText},
				}},
			},
		},
		{
			Slug: "navigation",
			Fields: []Field{
				{Name: "mainMenu", Kind: KindArray, Fields: []Field{
					{Name: "label", Kind: KindText, Required: true},
					{Name: "link", Kind: KindText, Required: true},
					{Name: "openInNewTab", Kind: KindCheckbox, Default: false},
				}},
				{Name: "footerLinks", Kind: KindArray, Fields: []Field{
					{Name: "label", Kind: KindText, Required: true},
					{Name: "link", Kind: KindText, Required: true},
				}},
			},
		},
	}
}
