package ui

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
)

// Action represents the user's choice after seeing recommendations
type Action int

const (
	ActionAnother Action = iota
	ActionCopy
	ActionOpenPoster
	ActionQuit
)

var actionLabels = []string{
	"Recommend for another movie",
	"Copy titles to clipboard",
	"Open a poster",
	"Quit",
}

// SelectMovie lets the user pick a title from the catalog. survey's
// built-in filter matches as the user types.
func SelectMovie(titles []string, pageSize int) (string, error) {
	if len(titles) == 0 {
		return "", fmt.Errorf("no titles to choose from")
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	var title string
	prompt := &survey.Select{
		Message:  "Pick a movie you liked:",
		Options:  titles,
		PageSize: pageSize,
		Filter: func(filter, value string, index int) bool {
			return strings.Contains(strings.ToLower(value), strings.ToLower(filter))
		},
	}

	if err := survey.AskOne(prompt, &title); err != nil {
		return "", err
	}

	return title, nil
}

// ChooseAction asks the user what to do with the recommendations
func ChooseAction(hasPosters bool) (Action, error) {
	options := []string{actionLabels[ActionAnother], actionLabels[ActionCopy]}
	if hasPosters {
		options = append(options, actionLabels[ActionOpenPoster])
	}
	options = append(options, actionLabels[ActionQuit])

	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: options,
	}

	if err := survey.AskOne(prompt, &choice); err != nil {
		return ActionQuit, err
	}

	for i, label := range actionLabels {
		if label == choice {
			return Action(i), nil
		}
	}
	return ActionQuit, nil
}

// ShowMenu displays options and returns the selected index
func ShowMenu(message string, options []string) (int, error) {
	var selected int
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := survey.AskOne(prompt, &selected); err != nil {
		return -1, err
	}

	return selected, nil
}

// PromptInput asks for a free-form value with a default
func PromptInput(message, defaultValue string, required bool) (string, error) {
	var value string
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}

	var opts []survey.AskOpt
	if required {
		opts = append(opts, survey.WithValidator(survey.Required))
	}

	if err := survey.AskOne(prompt, &value, opts...); err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

// PromptSecret asks for a value without echoing it
func PromptSecret(message string) (string, error) {
	var value string
	if err := survey.AskOne(&survey.Password{Message: message}, &value); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// PromptYesNo asks a yes/no question
func PromptYesNo(message string, defaultValue bool) (bool, error) {
	answer := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, err
	}

	return answer, nil
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection prints a section heading
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n%s\n%s\n", title, strings.Repeat("─", len([]rune(title))))
}
