package mcpserver

// NoteFormat describes how obvault reads a note, so that LLM consumers
// interpret report results the same way the indexer does.
const NoteFormat = `# Obvault Note Format

A note is any file with the vault's note extension (` + "`.md`" + ` by default)
below the vault root. Files and directories whose name starts with a dot are
skipped unless hidden entries are enabled.

## Frontmatter

` + "```" + `markdown
---
status: doing          # keys are validated against schema.json
tags: [go, learn/anki] # tags may also live here
---

Body text. #inline-tags count too.
` + "```" + `

1. The opening ` + "`---`" + ` must be the first line of the file.
2. The block is YAML. It must decode to a mapping; anything else is treated
   as no frontmatter.
3. A note whose frontmatter has no keys is **awaiting triage**. Triage notes
   are excluded from schema validation.

## Tags

A tag is ` + "`#`" + ` followed by letters, digits, ` + "`_`, `-` or `/`" + `, not preceded by
a word character. Nested tags such as ` + "`#todo/now`" + ` are distinct from their
parent: ` + "`#todo`" + ` does not match ` + "`#todo/now`" + `.

## Schema

` + "`schema.json`" + ` at the vault root is a JSON Schema (draft 2020-12, comments
and trailing commas allowed). Validation issues are listed most relevant
first: deeper instance locations before shallower ones.

## Reports

- **todo**: notes tagged with a todo tag, and every line containing the todo marker.
- **labelled**: notes carrying exactly the given tag.
- **anki**: notes labelled for Anki (` + "`#learn/anki`" + ` by default).
- **triage**: notes awaiting triage.
`
