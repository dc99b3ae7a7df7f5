// Package script renders OmniFocus automation scripts from registered,
// parameter-typed templates.
//
// Every dynamic value reaches a script through Serialize, which emits a
// JavaScript literal for a typed Value. Templates are parsed once at
// registration into literal and placeholder segments, so there is no
// other substitution path. Shared helper preambles are composed at most
// once per script, and Wrap adds the top-level error envelope that the
// outcome parser decodes.
package script
