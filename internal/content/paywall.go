// AngelaMos | 2026
// paywall.go

package content

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/carterperez-dev/paywall-blog/internal/access"
)

const (
	PaywallClass = "PAYWALLED"

	attrIdentifier = "data-paywall-identifier"
	attrTitle      = "data-paywall-title"
	attrPrice      = "data-paywall-price"
	attrCurrency   = "data-paywall-currency"
)

type WallOptions struct {
	LoginPath      string
	RegisterPath   string
	LogoutPath     string
	AccountPath    string
	PurchasePrefix string
}

func DefaultWallOptions() WallOptions {
	return WallOptions{
		LoginPath:      "/login",
		RegisterPath:   "/register",
		LogoutPath:     "/auth/logout",
		AccountPath:    "/users/me",
		PurchasePrefix: "/purchase",
	}
}

var wallTemplates = template.Must(template.New("walls").Parse(`
{{define "register"}}<section class="paywall registerwall">
<h2>Keep reading</h2>
<p>Create a free account to read the rest of this article.</p>
<a class="button" href="{{.RegisterPath}}">Register</a>
<a href="{{.LoginPath}}">Log in</a>
</section>{{end}}
{{define "verify"}}<section class="paywall verifywall">
<h2>Confirm your email</h2>
<p>We sent a confirmation link to your inbox. Confirm your address to continue reading.</p>
</section>{{end}}
{{define "buy"}}<section class="paywall buywall">
<h2>{{.Title}}</h2>
<p>Unlock this article for {{.Price}}.</p>
<form method="post" action="{{.PurchaseURL}}"><button type="submit">Buy article</button></form>
</section>{{end}}
{{define "widget"}}<nav class="account-widget" data-tier="{{.Tier}}">
{{if .LoggedIn}}<a href="{{.AccountPath}}">Account</a>
<form method="post" action="{{.LogoutPath}}"><button type="submit">Log out</button></form>
{{else}}<a href="{{.LoginPath}}">Log in</a>
<a href="{{.RegisterPath}}">Register</a>{{end}}
</nav>{{end}}
`))

// ExtractMetadata reads the paywall attributes of the PAYWALLED element.
// A document without the marker yields nil.
func ExtractMetadata(doc Document) (*PaywallMetadata, error) {
	root, err := html.Parse(bytes.NewReader(doc.Body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	marker := findMarker(root)
	if marker == nil {
		return nil, nil
	}

	return metadataFromMarker(doc.Key, marker)
}

func metadataFromMarker(key Key, marker *html.Node) (*PaywallMetadata, error) {
	id := strings.TrimSpace(attr(marker, attrIdentifier))
	if id == "" {
		return nil, fmt.Errorf("%s: missing %s", key, attrIdentifier)
	}

	title := strings.TrimSpace(attr(marker, attrTitle))
	if title == "" {
		return nil, fmt.Errorf("%s: missing %s", key, attrTitle)
	}

	price, err := ParsePrice(attr(marker, attrPrice), attr(marker, attrCurrency))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}

	return &PaywallMetadata{
		Identifier: id,
		Link:       string(key),
		Title:      title,
		Price:      price,
	}, nil
}

// PaywallTransforms returns the standard tier renderings in ascending
// order: register wall, verify wall, buy wall, full article.
func PaywallTransforms(opts WallOptions) []Transform {
	return []Transform{
		{Tier: access.NoAuth, Apply: wallTransform(opts, access.NoAuth, "register")},
		{Tier: access.Unconfirmed, Apply: wallTransform(opts, access.Unconfirmed, "verify")},
		{Tier: access.Confirmed, Apply: wallTransform(opts, access.Confirmed, "buy")},
		{Tier: access.PaidForItem, Apply: wallTransform(opts, access.PaidForItem, "")},
	}
}

func wallTransform(opts WallOptions, tier access.Tier, wall string) TransformFunc {
	return func(doc Document) ([]byte, error) {
		root, err := html.Parse(bytes.NewReader(doc.Body))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}

		if marker := findMarker(root); marker != nil && wall != "" {
			if err := applyWall(opts, doc.Key, root, marker, wall); err != nil {
				return nil, err
			}
		}

		if err := injectWidget(opts, root, tier); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		if err := html.Render(&buf, root); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
		return buf.Bytes(), nil
	}
}

func applyWall(
	opts WallOptions,
	key Key,
	root, marker *html.Node,
	wall string,
) error {
	data := map[string]any{
		"LoginPath":    opts.LoginPath,
		"RegisterPath": opts.RegisterPath,
	}

	if wall == "buy" {
		meta, err := metadataFromMarker(key, marker)
		if err != nil {
			return err
		}
		data["Title"] = meta.Title
		data["Price"] = meta.Price.String()
		data["PurchaseURL"] = opts.PurchasePrefix + string(key)
	}

	boundary := ancestor(marker, atom.Main)
	if boundary == nil {
		boundary = findElement(root, atom.Body)
	}
	if boundary == nil {
		return fmt.Errorf("%s: paywall marker outside of <body>", key)
	}

	truncateAfter(marker, boundary)

	nodes, err := renderFragment(wall, data, boundary)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		boundary.AppendChild(n)
	}

	return nil
}

func injectWidget(opts WallOptions, root *html.Node, tier access.Tier) error {
	body := findElement(root, atom.Body)
	if body == nil {
		return nil
	}

	nodes, err := renderFragment("widget", map[string]any{
		"Tier":         tier.String(),
		"LoggedIn":     tier.AtLeast(access.Unconfirmed),
		"LoginPath":    opts.LoginPath,
		"RegisterPath": opts.RegisterPath,
		"LogoutPath":   opts.LogoutPath,
		"AccountPath":  opts.AccountPath,
	}, body)
	if err != nil {
		return err
	}

	first := body.FirstChild
	for _, n := range nodes {
		body.InsertBefore(n, first)
	}
	return nil
}

func renderFragment(name string, data any, context *html.Node) ([]*html.Node, error) {
	var buf bytes.Buffer
	if err := wallTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}

	nodes, err := html.ParseFragment(&buf, &html.Node{
		Type:     html.ElementNode,
		Data:     context.Data,
		DataAtom: context.DataAtom,
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s fragment: %w", name, err)
	}
	return nodes, nil
}

// truncateAfter drops everything that follows marker in document order
// up to the end of boundary.
func truncateAfter(marker, boundary *html.Node) {
	for cur := marker; cur != nil && cur != boundary; cur = cur.Parent {
		for sib := cur.NextSibling; sib != nil; {
			next := sib.NextSibling
			cur.Parent.RemoveChild(sib)
			sib = next
		}
	}
}

func findMarker(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, PaywallClass) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findMarker(c); found != nil {
			return found
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func ancestor(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == a {
			return p
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
