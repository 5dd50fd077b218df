package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/assettree/pkg/model"
)

// companyPicker asks the user to choose one of several companies.
type companyPicker func(companies []model.Company) (string, error)

// resolveCompany returns the company to show: the one asked for, the only
// one known, or the one picked interactively.
func (a *app) resolveCompany(ctx context.Context) (string, error) {
	if a.opts.Company != "" {
		return a.opts.Company, nil
	}

	companies, err := a.loader.Companies(ctx)
	if err != nil && len(companies) == 0 {
		return "", fmt.Errorf("listing companies: %w", err)
	}
	switch len(companies) {
	case 0:
		return "", fmt.Errorf("no companies found in %s", a.opts.DataDir)
	case 1:
		return companies[0].ID, nil
	}

	if a.pick == nil {
		ids := make([]string, len(companies))
		for i, c := range companies {
			ids[i] = c.ID
		}
		return "", fmt.Errorf("several companies found, pass --company (one of %s)", strings.Join(ids, ", "))
	}
	return a.pick(companies)
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		form = form.WithAccessible(true)
	}
	return form
}

func huhPicker(companies []model.Company) (string, error) {
	options := make([]huh.Option[string], len(companies))
	for i, c := range companies {
		options[i] = huh.NewOption(companyTitle(c), c.ID)
	}

	selected := companies[0].ID
	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which company?").
				Options(options...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}
