package headers

import (
	"bufio"
	"bytes"
	"strings"
)

// Preprocess implements the "preprocess this text" interface spec §1
// reserves for foreign C headers: a minimal conditional-directive pass
// that strips `#if`/`#ifdef`/`#ifndef`/`#else`/`#elif`/`#endif` blocks
// whose condition doesn't hold against defined, before the content ever
// reaches the tree-sitter-cpp parser. It does not evaluate arbitrary C
// preprocessor expressions (no macro substitution, no `#define` inside the
// header itself is honored) — only bare-identifier conditions against the
// caller-supplied defined set, which is the only shape spec §1 names
// ("conditional #if MACRO-style directives").
func Preprocess(content []byte, defined map[string]bool) []byte {
	var out bytes.Buffer
	// activeStack[i] is whether the current nesting level at depth i is
	// emitting; takenStack[i] is whether any branch at that level has
	// already been taken (so a later #elif/#else in the same block is
	// skipped once one branch already matched).
	var activeStack, takenStack []bool
	active := true

	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#ifdef "):
			macro := strings.TrimSpace(trimmed[len("#ifdef "):])
			cond := active && defined[macro]
			activeStack = append(activeStack, active)
			takenStack = append(takenStack, cond)
			active = cond
			continue
		case strings.HasPrefix(trimmed, "#ifndef "):
			macro := strings.TrimSpace(trimmed[len("#ifndef "):])
			cond := active && !defined[macro]
			activeStack = append(activeStack, active)
			takenStack = append(takenStack, cond)
			active = cond
			continue
		case strings.HasPrefix(trimmed, "#if "):
			macro := strings.TrimSpace(trimmed[len("#if "):])
			cond := active && defined[macro]
			activeStack = append(activeStack, active)
			takenStack = append(takenStack, cond)
			active = cond
			continue
		case strings.HasPrefix(trimmed, "#elif "):
			if len(takenStack) == 0 {
				continue
			}
			top := len(takenStack) - 1
			macro := strings.TrimSpace(trimmed[len("#elif "):])
			parentActive := activeStack[top]
			cond := parentActive && !takenStack[top] && defined[macro]
			if cond {
				takenStack[top] = true
			}
			active = cond
			continue
		case trimmed == "#else":
			if len(takenStack) == 0 {
				continue
			}
			top := len(takenStack) - 1
			active = activeStack[top] && !takenStack[top]
			takenStack[top] = true
			continue
		case trimmed == "#endif":
			if len(activeStack) == 0 {
				continue
			}
			top := len(activeStack) - 1
			active = activeStack[top]
			activeStack = activeStack[:top]
			takenStack = takenStack[:top]
			continue
		}
		if active {
			out.WriteString(line)
			out.WriteByte('\n')
		}
	}
	return out.Bytes()
}
