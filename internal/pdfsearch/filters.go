package pdfsearch

import (
	"html"

	"pdfsearch/internal/hooks"
)

var (
	FormFilterName    = hooks.FilterName("Form", "Item", ElementSetName, ElementName)
	DisplayFilterName = hooks.FilterName("Display", "Item", ElementSetName, ElementName)
)

// FormField renders the Text element as a disabled textarea. Browsers do not submit disabled
// fields, and the next refresh would overwrite any edit anyway.
func FormField(inputNameStem, value string) string {
	return `<textarea name="` + html.EscapeString(inputNameStem) + `[text]" class="textinput" rows="15" cols="50" disabled>` +
		html.EscapeString(value) + "</textarea>\n"
}

// DisplayText hides the raw extracted text outside admin views.
func DisplayText(value string, args hooks.FilterArgs) string {
	if !args.Admin {
		return ""
	}
	return value
}

// RegisterFilters installs the form and display filters for the Text element.
func RegisterFilters(reg *hooks.Registry) {
	reg.AddFilter(FormFilterName, func(value string, args hooks.FilterArgs) string {
		return FormField(args.InputNameStem, value)
	})
	reg.AddFilter(DisplayFilterName, DisplayText)
}
