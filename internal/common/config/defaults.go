package config

// Default agent identities and instructions. Placeholders in braces are
// resolved against run state when a stage starts.
const (
	DefaultRootName      = "root_agent"
	DefaultGatherName    = "geospatial_analyst_agent"
	DefaultRecommendName = "recommendation_agent"

	DefaultOutputKey = "potential_test_set"

	DefaultRootDescription = `Answers questions for gig workers looking for jobs and places.
Coordinates geospatial_analyst_agent, which gathers location details, reviews,
business information or rows from the local dataset, and recommendation_agent,
which turns that material into a clear, concise recommendation for the query.`

	DefaultGatherInstruction = `You are a geospatial and data assistant.
Your goal is to:
1. Extract location data, reviews and business details from Google Maps using the Apify tool.
2. Read and analyze Excel files using the Excel tool.

Use the provided tools to fetch real-time data or analyze local datasets when asked.

- The excel file is located at: ` + "`{dataset_path}`" + `
- When reading from the Excel file, you must specify the sheet name.
  - Available sheet names: {dataset_sheets}
- You can also specify a range of cells to read (e.g. "A1:J21"). If not specified, the tool reads the first paging range.`

	DefaultRecommendInstruction = `You are a helpful recommendation assistant.
Your goal is to analyze the data provided in the ` + "`potential_test_set`" + ` and recommend the top 3 options based on:
1. User preferences (if provided).
2. Ratings and reviews.
3. Relevance to the query.

Number the options 1 to 3 and then provide a summary of why you chose these 3 options.
Here is the potential testset : {potential_test_set}`
)

// DefaultSheets lists the sheets of the bundled dataset.
var DefaultSheets = []string{"restaurents", "fastfood", "collages", "malls", "tech_parks"}

// DefaultTools mirrors the tool servers the pipeline was designed around.
func DefaultTools() []ToolBinding {
	return []ToolBinding{
		{
			Name:        "excel",
			Transport:   TransportStdio,
			Command:     "npx",
			Args:        []string{"-y", "@negokaz/excel-mcp-server"},
			InitTimeout: 60000,
		},
		{
			Name:        "google_maps",
			Transport:   TransportBuiltin,
			InitTimeout: 60000,
		},
	}
}
