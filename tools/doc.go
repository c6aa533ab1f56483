// Package tools defines tool contracts, the registry/invoker and the
// built-in tools available to the director.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](), NewTool[T](): derive schema and decoding from Go structs.
//   - Registry: fixed tool set; Describe is sorted by name, Invoke never panics.
//   - Built-ins: switch_camera, calculator, ddg_search, scrape_website.
//
// Failures are reported as *ToolError with a machine-readable code so the
// model can read them back as a tool result.
package tools
