package mcpserver

// LinkFormatContract describes the canonical link record format that LLM
// consumers must follow when linking requirements to document blocks.
const LinkFormatContract = `# Docbrand Link Record Contract

Every block→requirement link stored in Docbrand MUST follow this structure.

## Structure

` + "```" + `json
{
  "reqId": "REQ-123",
  "coverage": "full",
  "confidence": 0.92,
  "timestamp": "2025-01-20T14:03:00Z"
}
` + "```" + `

## Rules

1. **` + "`" + `reqId` + "`" + ` is required** and identifies a requirement in the external
   requirement store (e.g. ` + "`" + `REQ-42` + "`" + `, ` + "`" + `SYS-REQ-007` + "`" + `). Docbrand does not
   validate its existence; the requirement store does.
2. **` + "`" + `coverage` + "`" + ` is ` + "`" + `full` + "`" + ` or ` + "`" + `partial` + "`" + `.** Use ` + "`" + `full` + "`" + ` only when the block
   alone satisfies the requirement; otherwise ` + "`" + `partial` + "`" + `.
3. **` + "`" + `confidence` + "`" + ` is a number in [0,1].** Automated linkers report their
   classifier score; manual links use 1.0.
4. **One record per requirement per block.** Linking the same requirement
   to the same block again replaces the existing record (coalescing); it
   never appends a duplicate.
5. **The block's link list is canonical.** Indices over it are derived and
   rebuildable; never treat a query result as more authoritative than the
   document itself. When in doubt, call the ` + "`" + `repair_index` + "`" + ` tool.
6. **Timestamps are UTC ISO-8601.** Omitted timestamps are filled in at
   link time.

## Workflow

1. ` + "`" + `list_documents` + "`" + ` to find the document.
2. ` + "`" + `get_coverage` + "`" + ` to see which requirements are already linked.
3. ` + "`" + `link_requirement` + "`" + ` / ` + "`" + `unlink_requirement` + "`" + ` to edit link state.
4. ` + "`" + `get_blocks_for_requirement` + "`" + ` to verify the result.
`
