package mcpserver

// DocumentFormatContract describes the canonical managed-document format
// that LLM consumers should follow when creating or editing documents.
const DocumentFormatContract = `# Othala Document Format Contract

Every Markdown document stored in Othala MUST follow this structure.

## Structure

` + "```" + `markdown
---
container: true                     # OPTIONAL – marks the document as a container
type: project                       # OPTIONAL – free-form container type
color-light: "#e8f0fe"              # OPTIONAL – light-theme accent color
color-dark: "#1a2b4c"               # OPTIONAL – dark-theme accent color
---
## Containers

- [[Child Container]]

## Notes

- [[meeting-2025-01-20]]
- [[roadmap|the roadmap]]

## Resources

- [[design-doc]]

Free-form body text in standard Markdown. Everything below the managed
sections belongs to the author and is never rewritten.
` + "```" + `

## Rules

1. **YAML frontmatter is optional but strict.** When present, the ` + "`" + `---` + "`" + ` fences
   must be the first thing in the file (no leading blank lines).
2. **Managed sections** are the ` + "`" + `## ` + "`" + ` headers ` + "`" + `Containers` + "`" + `, ` + "`" + `Notes` + "`" + `,
   ` + "`" + `Resources` + "`" + `, and ` + "`" + `Prompts` + "`" + `, in exactly that order. They sit at the top of
   the document, directly after the frontmatter.
3. **Entries** are single lines of the form ` + "`" + `- [[Target]]` + "`" + ` or
   ` + "`" + `- [[Target|alias]]` + "`" + `. The alias is display-only; the target identifies the
   linked item. Targets must not contain ` + "`" + `[` + "`" + `, ` + "`" + `]` + "`" + `, ` + "`" + `|` + "`" + `, or newlines.
4. **Containers are folder notes.** A container named ` + "`" + `Name` + "`" + ` lives at
   ` + "`" + `.../Name/Name.md` + "`" + ` and owns that directory. Its ` + "`" + `Containers` + "`" + ` section lists
   its nested containers.
5. **Entries in ` + "`" + `Containers` + "`" + ` are hierarchy edges.** Adding or removing one
   re-parents the target; do not hand-edit these unless you mean to restructure.
6. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
7. **Encoding** is UTF-8 with a trailing newline.
8. **User content is untouchable.** Tools only rewrite the managed sections;
   everything after them (headings, prose, task lists) is preserved verbatim.

## Example

` + "```" + `markdown
---
container: true
type: project
---
## Containers

- [[Backend]]
- [[Frontend]]

## Notes

- [[standup-2025-01-20]]

# Apollo

Launch target: Q3. See [[design-doc]] for the architecture.
` + "```" + `
`
