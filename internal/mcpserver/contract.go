package mcpserver

// MemoryContract describes the memory entities and conventions that LLM
// consumers should follow when saving and recalling memory.
const MemoryContract = `# Mimir Memory Contract

Mimir is a persistent, workspace-scoped memory for coding sessions. Every
record belongs to exactly one workspace; nothing crosses workspaces unless
a search explicitly asks for "all".

## Entity kinds

- **checkpoint** — a session snapshot: what was accomplished, where work
  stopped, which files were active, the git branch, highlights worth
  keeping. Save one before ending a session or switching tasks.
- **todo list** — a titled list of numbered items, each pending, active,
  or done. Lists stay useful across sessions; re-use the latest list
  instead of creating near-duplicates.
- **plan** — a larger piece of work: draft, active, completed, or
  abandoned, with task items and append-only discoveries. Link generated
  todo lists and related checkpoints onto the plan as work proceeds.
- **chronicle** — an automatic activity journal. It is written for you;
  never create chronicle entries directly.

## Smart references

Tools that take a "list" or "plan" argument accept smart references
instead of full ids:

- ` + "`" + `latest` + "`" + `, ` + "`" + `recent` + "`" + `, ` + "`" + `last` + "`" + ` — the most recently updated record.
- ` + "`" + `active` + "`" + `, ` + "`" + `current` + "`" + ` — the most recently updated record that is still
  open (a list with unfinished items, a draft or active plan).
- A full id, or a unique id suffix (the last characters are enough).

## Recall

- Plain words match loosely; "quoted phrases" must appear verbatim.
- ` + "`" + `mode` + "`" + `: strict (all terms required), normal, fuzzy (tolerates typos),
  auto (escalates strict -> normal -> fuzzy until something matches).
- ` + "`" + `tags` + "`" + `: a match must carry every listed tag.
- ` + "`" + `since` + "`" + `: 2h, 1d, 1w, or an ISO date.

## Retention

Records expire after their TTL (default 30 days) and each kind is capped
per workspace, oldest evicted first. Anything worth keeping beyond that
should be promoted into a plan or re-saved.
`
