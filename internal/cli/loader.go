package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rewrite/internal/compiler"
	"github.com/roach88/rewrite/internal/mathrules"
)

// BuiltinRules selects the embedded math table. It is also the default
// of every --rules flag.
const BuiltinRules = "builtin:math"

// LoadResult contains a parsed, not yet compiled, rule table.
type LoadResult struct {
	Source    string                 // rules reference as given
	Specs     []compiler.RuleSetSpec // parsed RuleSets in table order
	FileCount int                    // number of CUE files read
}

// LoadError represents an error that occurred during rule table loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSpecs reads and parses the rule table named by ref: BuiltinRules
// (or "") for the embedded table, otherwise a CUE file or a directory of
// CUE files. Patterns are not compiled and the table is not validated.
//
// All errors are *LoadError.
func LoadSpecs(ref string) (*LoadResult, error) {
	if ref == "" {
		ref = BuiltinRules
	}

	var (
		value     cue.Value
		fileCount int
	)

	switch {
	case ref == BuiltinRules:
		value = cuecontext.New().CompileBytes(mathrules.Source(), cue.Filename("math.cue"))
		fileCount = 1

	case strings.HasPrefix(ref, "builtin:"):
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("unknown builtin rule table: %s", ref)}

	default:
		info, err := os.Stat(ref)
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules path not found: %s", ref)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules path: %v", err)}
		}

		fileCount = 1
		if info.IsDir() {
			files, err := compiler.FindCUEFiles(ref)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
			}
			if len(files) == 0 {
				return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", ref)}
			}
			fileCount = len(files)
		}

		value, err = compiler.LoadValue(ref)
		if err != nil {
			return nil, convertCompileError(err, ErrCodeLoadFailed)
		}
	}

	specs, err := compiler.ParseTable(value)
	if err != nil {
		return nil, convertCompileError(err, ErrCodeGeneric)
	}

	return &LoadResult{
		Source:    ref,
		Specs:     specs,
		FileCount: fileCount,
	}, nil
}

// LoadRules loads, validates and compiles the rule table named by ref.
// The math computations are registered for every table, so external
// tables may use compute: "add" and friends.
//
// Validation failures are reported as the first error's code with the
// full list in the message.
func LoadRules(ref string) (*compiler.Table, error) {
	if ref == "" || ref == BuiltinRules {
		table, err := mathrules.Table()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
		}
		return table, nil
	}

	loaded, err := LoadSpecs(ref)
	if err != nil {
		return nil, err
	}

	if errs := compiler.Validate(loaded.Specs, mathrules.Computations()); len(errs) > 0 {
		return nil, &LoadError{
			Code:    errs[0].Code,
			Message: compiler.ValidationErrors(errs).Error(),
		}
	}

	table, err := compiler.Build(loaded.Specs, mathrules.Computations())
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: err.Error()}
	}
	return table, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, fallback string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    fallback,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
// Table validation codes (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeRunNotFound = "E007" // Run ID not in the run log

	// Table shape errors
	ErrCodeNoRuleSets = "E008" // rulesets missing or empty
	ErrCodeRuleShape  = "E009" // missing or mistyped rule field
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "cue":
		return ErrCodeBuildFailed
	case "rulesets":
		return ErrCodeNoRuleSets
	case "name", "pattern", "template", "compute", "topic":
		return ErrCodeRuleShape
	default:
		return ErrCodeGeneric
	}
}
