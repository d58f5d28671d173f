package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NameRole is one extracted contact heading with its nearby role text.
type NameRole struct {
	Name string
	Role string
}

var (
	teamCSSPattern  = regexp.MustCompile(`(?i)team|member|person|staff|bio|people`)
	nameCSSPattern  = regexp.MustCompile(`(?i)name`)
	headingSelector = "h2, h3, h4, h5, h6, strong"
)

// maxContainerText skips page-wrapper containers whose text is the whole
// document rather than one card.
const maxContainerText = 20000

// ExtractNameRoles pulls (name, role) pairs out of a team page using three
// strategies in order of precision: team-flavored CSS classes, structured
// cards where a role is required nearby, and a relaxed sweep that accepts
// names without roles when nothing else matched.
func (k Keywords) ExtractNameRoles(doc *goquery.Document) []NameRole {
	var pairs []NameRole

	doc.Find("*").Each(func(_ int, el *goquery.Selection) {
		if !hasTeamCSSHint(el) {
			return
		}
		heading := el.Find(headingSelector).First()
		if heading.Length() == 0 {
			heading = findNameClassed(el)
		}
		if heading == nil || heading.Length() == 0 {
			return
		}
		name := strings.TrimSpace(heading.Text())
		if !LooksLikeName(name) {
			return
		}
		role := k.findRoleNearby(heading, true)
		if role == "" {
			role = k.findRoleNearby(heading, false)
		}
		pairs = append(pairs, NameRole{Name: name, Role: role})
	})

	for _, tag := range []string{"div", "li", "article"} {
		doc.Find(tag).Each(func(_ int, container *goquery.Selection) {
			if len(container.Text()) > maxContainerText {
				return
			}
			heading := container.Find(headingSelector).First()
			if heading.Length() == 0 {
				return
			}
			name := strings.TrimSpace(heading.Text())
			if !LooksLikeName(name) {
				return
			}
			// Roles are required here; a heading with no role nearby is
			// usually not a team card.
			if role := k.findRoleNearby(heading, true); role != "" {
				pairs = append(pairs, NameRole{Name: name, Role: role})
			}
		})
	}

	if len(pairs) == 0 {
		for _, tag := range []string{"div", "li", "article"} {
			doc.Find(tag).Each(func(_ int, container *goquery.Selection) {
				if len(container.Text()) > maxContainerText {
					return
				}
				heading := container.Find(headingSelector).First()
				if heading.Length() == 0 {
					return
				}
				name := strings.TrimSpace(heading.Text())
				if !LooksLikeName(name) {
					return
				}
				pairs = append(pairs, NameRole{Name: name, Role: k.findRoleNearby(heading, false)})
			})
		}
	}

	seen := map[string]struct{}{}
	unique := pairs[:0]
	for _, p := range pairs {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}

// findRoleNearby searches up to three following siblings plus the heading's
// parent container for role-like text.
func (k Keywords) findRoleNearby(heading *goquery.Selection, requireKeyword bool) string {
	var candidates []*goquery.Selection
	sib := heading.Next()
	for i := 0; i < 3 && sib.Length() > 0; i++ {
		candidates = append(candidates, sib)
		sib = sib.Next()
	}
	heading.Parent().Children().Each(func(_ int, child *goquery.Selection) {
		if child.Length() > 0 && !isSameNode(child, heading) {
			candidates = append(candidates, child)
		}
	})

	for _, elem := range candidates {
		candidate := CleanRoleText(strings.TrimSpace(elem.Text()))
		if candidate == "" || len(candidate) >= 80 {
			continue
		}
		if k.roleIsActuallyAName(candidate) {
			continue
		}
		if requireKeyword {
			if k.containsRoleKeyword(candidate) {
				return candidate
			}
			continue
		}
		if len(candidate) > 3 && len(candidate) < 60 {
			return candidate
		}
	}
	return ""
}

func isSameNode(a, b *goquery.Selection) bool {
	if len(a.Nodes) == 0 || len(b.Nodes) == 0 {
		return false
	}
	return a.Nodes[0] == b.Nodes[0]
}

func hasTeamCSSHint(el *goquery.Selection) bool {
	if class, ok := el.Attr("class"); ok && teamCSSPattern.MatchString(class) {
		return true
	}
	if id, ok := el.Attr("id"); ok && teamCSSPattern.MatchString(id) {
		return true
	}
	return false
}

// findNameClassed falls back to a descendant whose class names it as the
// name element ("member-name", "person__name").
func findNameClassed(el *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	el.Find("a, span, div, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if class, ok := s.Attr("class"); ok && nameCSSPattern.MatchString(class) {
			found = s
			return false
		}
		return true
	})
	return found
}
