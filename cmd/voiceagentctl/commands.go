package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/buchungsbutler/voiceagent/pkg/client"
	"github.com/buchungsbutler/voiceagent/pkg/routeguard"
	"github.com/buchungsbutler/voiceagent/pkg/session"
)

var errNotSignedIn = errors.New("not signed in, run: voiceagentctl login")

type cli struct {
	provider *session.Provider
	out      io.Writer
}

func (c *cli) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return c.login(ctx, rest)
	case "logout":
		return c.logout(ctx)
	case "register":
		return c.register(ctx, rest)
	case "whoami":
		return c.whoami()
	case "route":
		return c.route(rest)
	case "stats":
		return c.tenantStats(ctx)
	case "appointments":
		return c.appointments(ctx)
	case "users":
		return c.users(ctx, rest)
	case "admin":
		return c.admin(ctx, rest)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// authed refreshes the profile so that status changes made by an
// administrator since the last command are honoured.
func (c *cli) authed(ctx context.Context) (*client.Client, error) {
	if !c.provider.View().IsAuthenticated {
		return nil, errNotSignedIn
	}
	if err := c.provider.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("session expired: %w", err)
	}
	return c.provider.Client(), nil
}

// allowed checks the route guard for the area a command belongs to.
func (c *cli) allowed(path string) error {
	d := routeguard.Resolve(path, c.provider.View())
	if d.Action == routeguard.Render {
		return nil
	}
	return fmt.Errorf("%s is not available for this account (%s)", path, d)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("VOICEAGENT_PASSWORD"), "password (default $VOICEAGENT_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := c.provider.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "signed in as %s\n", resp.Email)
	fmt.Fprintf(c.out, "home: %s\n", routeguard.ResolveDestination(c.provider.View()))
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.provider.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "signed out")
	return nil
}

func (c *cli) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var req client.RegisterRequest
	fs.StringVar(&req.CompanyName, "company", "", "company name")
	fs.StringVar(&req.ContactPerson, "contact", "", "contact person")
	fs.StringVar(&req.Email, "email", "", "email")
	fs.StringVar(&req.Password, "password", os.Getenv("VOICEAGENT_PASSWORD"), "password")
	fs.StringVar(&req.Phone, "phone", "", "phone")
	fs.StringVar(&req.Street, "street", "", "street")
	fs.StringVar(&req.HouseNumber, "number", "", "house number")
	fs.StringVar(&req.PostalCode, "zip", "", "postal code")
	fs.StringVar(&req.City, "city", "", "city")
	fs.StringVar(&req.Industry, "industry", "", "industry")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := c.provider.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "registered %s (%s), status %s\n", resp.CompanyName, resp.TenantID, resp.Status)
	fmt.Fprintln(c.out, "the account can sign in once an administrator approves it")
	return nil
}

func (c *cli) whoami() error {
	v := c.provider.View()
	profile, ok := c.provider.Profile()
	if !v.IsAuthenticated || !ok {
		fmt.Fprintln(c.out, "not signed in")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "user\t%s\n", profile.Username)
	fmt.Fprintf(w, "email\t%s\n", profile.Email)
	if profile.TenantID != nil {
		fmt.Fprintf(w, "tenant\t%s\n", profile.TenantID)
	}
	fmt.Fprintf(w, "super admin\t%t\n", v.IsSuperAdmin)
	fmt.Fprintf(w, "status\t%s\n", v.TenantStatus)
	fmt.Fprintf(w, "home\t%s\n", routeguard.ResolveDestination(v))
	return w.Flush()
}

func (c *cli) route(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: route PATH")
	}
	area := routeguard.AreaFor(args[0])
	fmt.Fprintf(c.out, "%s (%s): %s\n", args[0], area, routeguard.Guard(area, c.provider.View()))
	return nil
}

func (c *cli) tenantStats(ctx context.Context) error {
	api, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if err := c.allowed(string(routeguard.RouteDashboard)); err != nil {
		return err
	}
	s, err := api.TenantStats(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "appointments\t%d\n", s.Appointments)
	fmt.Fprintf(w, "conversations\t%d\n", s.Conversations)
	fmt.Fprintf(w, "calendars\t%d\n", s.Calendars)
	fmt.Fprintf(w, "users\t%d\n", s.Users)
	return w.Flush()
}

func (c *cli) appointments(ctx context.Context) error {
	api, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if err := c.allowed("/dashboard/appointments"); err != nil {
		return err
	}
	list, err := api.Appointments(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "START\tEND\tTITLE\tID")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", a.StartTime.Local().Format("2006-01-02 15:04"), a.EndTime.Local().Format("15:04"), a.Title, a.ID)
	}
	return w.Flush()
}

func (c *cli) users(ctx context.Context, args []string) error {
	api, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if err := c.allowed("/dashboard/settings"); err != nil {
		return err
	}

	if len(args) > 0 && args[0] == "add" {
		fs := flag.NewFlagSet("users add", flag.ContinueOnError)
		var req client.CreateUserRequest
		fs.StringVar(&req.Email, "email", "", "email")
		fs.StringVar(&req.Username, "username", "", "username")
		fs.StringVar(&req.Password, "password", "", "password")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		u, err := api.CreateUser(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "created user %s (%s)\n", u.Email, u.ID)
		return nil
	}

	list, err := api.Users(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tUSERNAME\tOWNER\tID")
	for _, u := range list {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", u.Email, u.Username, u.IsAdmin, u.ID)
	}
	return w.Flush()
}

func (c *cli) admin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: admin stats|tenants|approve|reject|suspend")
	}
	api, err := c.authed(ctx)
	if err != nil {
		return err
	}
	if err := c.allowed(string(routeguard.RouteAdmin)); err != nil {
		return err
	}

	switch args[0] {
	case "stats":
		s, err := api.AdminStats(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "tenants\t%d (pending %d, approved %d)\n", s.TotalTenants, s.PendingTenants, s.ApprovedTenants)
		fmt.Fprintf(w, "users\t%d\n", s.TotalUsers)
		fmt.Fprintf(w, "calls\t%d (%.1f min)\n", s.TotalCalls, s.TotalMinutes)
		fmt.Fprintf(w, "invoices\t%d\n", s.TotalInvoices)
		fmt.Fprintf(w, "revenue\t%.2f EUR\n", s.TotalRevenue)
		return w.Flush()

	case "tenants":
		fs := flag.NewFlagSet("admin tenants", flag.ContinueOnError)
		status := fs.String("status", "", "filter by status")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		list, err := api.AdminTenants(ctx, *status)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COMPANY\tCONTACT\tSTATUS\tID")
		for _, t := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.CompanyName, t.ContactPerson, t.Status, t.ID)
		}
		return w.Flush()

	case "approve", "reject", "suspend":
		if len(args) != 2 {
			return fmt.Errorf("usage: admin %s ID", args[0])
		}
		t, err := api.TransitionTenant(ctx, args[1], args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s is now %s\n", t.CompanyName, t.Status)
		return nil
	}
	return fmt.Errorf("unknown admin command %q", args[0])
}
