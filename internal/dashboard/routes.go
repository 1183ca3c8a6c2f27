// Package dashboard maps bot commands to role-gated pages and renders
// booking cards with the controls the viewer's role may press.
package dashboard

import (
	"strings"

	"decorbook/internal/lifecycle"
)

type Section string

const (
	SectionPublic    Section = "public"
	SectionDashboard Section = "dashboard"
	SectionAdmin     Section = "admin"
	SectionDecorator Section = "decorator"
)

type Page string

const (
	PageHome           Page = "home"
	PageServices       Page = "services"
	PageService        Page = "service"
	PageCoverage       Page = "coverage"
	PageAbout          Page = "about"
	PageContact        Page = "contact"
	PageLogin          Page = "login"
	PageRegister       Page = "register"
	PageDemo           Page = "demo"
	PageHelp           Page = "help"
	PageBookings       Page = "bookings"
	PagePayments       Page = "payments"
	PageProfile        Page = "profile"
	PageLogout         Page = "logout"
	PageManageBookings Page = "manage_bookings"
	PageDecorators     Page = "decorators"
	PageAnalytics      Page = "analytics"
	PageNewService     Page = "new_service"
	PageDeleteService  Page = "delete_service"
	PageProjects       Page = "projects"

	PageNotFound      Page = "not_found"
	PageForbidden     Page = "forbidden"
	PageLoginRequired Page = "login_required"
)

// Route is one command of the bot.
type Route struct {
	Command string
	Page    Page
	Section Section
	Title   string
}

var routes = []Route{
	{"/start", PageHome, SectionPublic, "Home"},
	{"/services", PageServices, SectionPublic, "Browse services"},
	{"/service", PageService, SectionPublic, "Service details"},
	{"/coverage", PageCoverage, SectionPublic, "Service coverage"},
	{"/about", PageAbout, SectionPublic, "About us"},
	{"/contact", PageContact, SectionPublic, "Contact"},
	{"/login", PageLogin, SectionPublic, "Sign in"},
	{"/register", PageRegister, SectionPublic, "Create account"},
	{"/demo", PageDemo, SectionPublic, "Demo accounts"},
	{"/help", PageHelp, SectionPublic, "Commands"},

	{"/bookings", PageBookings, SectionDashboard, "My bookings"},
	{"/payments", PagePayments, SectionDashboard, "Payment history"},
	{"/profile", PageProfile, SectionDashboard, "Profile"},
	{"/logout", PageLogout, SectionDashboard, "Sign out"},

	{"/manage_bookings", PageManageBookings, SectionAdmin, "Manage bookings"},
	{"/decorators", PageDecorators, SectionAdmin, "Manage decorators"},
	{"/analytics", PageAnalytics, SectionAdmin, "Analytics"},
	{"/new_service", PageNewService, SectionAdmin, "Add service"},
	{"/delete_service", PageDeleteService, SectionAdmin, "Delete service"},

	{"/projects", PageProjects, SectionDecorator, "Assigned projects"},
}

var byCommand = func() map[string]Route {
	m := make(map[string]Route, len(routes))
	for _, r := range routes {
		m[r.Command] = r
	}
	return m
}()

// Routes lists every command in menu order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Resolution is the page a command lands on. Route is zero for unknown commands.
type Resolution struct {
	Route Route
	Page  Page
	Args  string
}

// Resolve maps typed text to a page for a viewer. Dashboard sections need a
// session; admin and decorator sections also need the matching role.
func Resolve(text string, actor lifecycle.Actor, signedIn bool) Resolution {
	cmd, args := SplitCommand(text)
	r, ok := byCommand[cmd]
	if !ok {
		return Resolution{Page: PageNotFound, Args: args}
	}

	res := Resolution{Route: r, Page: r.Page, Args: args}
	if r.Section == SectionPublic {
		return res
	}
	if !signedIn {
		res.Page = PageLoginRequired
		return res
	}
	if !Allowed(r.Section, actor) {
		res.Page = PageForbidden
	}
	return res
}

// Allowed reports whether actor may open pages of a section.
func Allowed(s Section, actor lifecycle.Actor) bool {
	switch s {
	case SectionPublic, SectionDashboard:
		return true
	case SectionAdmin:
		return actor == lifecycle.ActorAdmin
	case SectionDecorator:
		return actor == lifecycle.ActorDecorator
	default:
		return false
	}
}

// Menu lists the commands a viewer can open.
func Menu(actor lifecycle.Actor, signedIn bool) []Route {
	var out []Route
	for _, r := range routes {
		switch r.Page {
		case PageLogin, PageRegister, PageDemo:
			if signedIn {
				continue
			}
		}
		if r.Section != SectionPublic && (!signedIn || !Allowed(r.Section, actor)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SplitCommand returns the lowercased command without a @botname suffix and
// the rest of the text.
func SplitCommand(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	cmd, args, _ := strings.Cut(text, " ")
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), strings.TrimSpace(args)
}
