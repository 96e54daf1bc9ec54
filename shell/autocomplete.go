package shell

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellCompleter completes command names, options and option values.
type ShellCompleter struct{}

func NewShellCompleter() *ShellCompleter {
	return &ShellCompleter{}
}

// CommandMetadata holds autocomplete information for a command
type CommandMetadata struct {
	Options []string
	Args    []string
}

var commandMetadata = map[string]CommandMetadata{
	"load":     {Args: []string{"black", "white"}},
	"gen":      {Options: []string{"-eval"}},
	"search":   {Options: []string{"-depth", "-eval"}},
	"solve":    {Options: []string{"-wld"}},
	"bot":      {Options: []string{"-mid", "-end", "-exact", "-adaptive", "-book", "-play"}},
	"autoplay": {Options: []string{"-games", "-threads", "-random", "-out", "-positions"}},
	"help":     {Args: []string{"search", "bot", "autoplay"}},
}

var commandNames = []string{
	"new", "load", "play", "undo", "s", "gen", "search", "solve", "bot",
	"book", "canon", "autoplay", "help", "exit",
}

var boolValues = []string{"true", "false"}
var evaluatorNames = []string{"heuristic", "positional", "neural"}

// Do implements the readline.AutoCompleter interface.
func (c *ShellCompleter) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	fields, err := shellquote.Split(text)
	if err != nil {
		fields = strings.Fields(text)
	}
	endsWithSpace := len(text) > 0 && text[len(text)-1] == ' '

	var prefix string
	var completions []string
	if len(fields) == 0 || (len(fields) == 1 && !endsWithSpace) {
		if len(fields) == 1 {
			prefix = fields[0]
		}
		completions = commandNames
	} else {
		cmdName := fields[0]
		if !endsWithSpace {
			prefix = fields[len(fields)-1]
		}
		var lastCompleteField string
		if endsWithSpace {
			lastCompleteField = fields[len(fields)-1]
		} else if len(fields) > 1 {
			lastCompleteField = fields[len(fields)-2]
		}
		switch lastCompleteField {
		case "-eval":
			completions = evaluatorNames
		case "-wld", "-exact", "-adaptive", "-book", "-play":
			completions = boolValues
		}
		if completions == nil {
			if metadata, ok := commandMetadata[cmdName]; ok {
				if strings.HasPrefix(prefix, "-") || len(metadata.Args) == 0 {
					completions = metadata.Options
				} else {
					completions = metadata.Args
				}
			}
		}
	}

	var matches [][]rune
	for _, completion := range completions {
		if strings.HasPrefix(completion, prefix) {
			matches = append(matches, []rune(completion[len(prefix):]))
		}
	}
	return matches, len(prefix)
}
