package pipeline

import (
	"fmt"

	"github.com/thinkscotty/medialens/internal/agent"
	"github.com/thinkscotty/medialens/internal/ai"
)

// Output format declarations handed to the agent factory. The schemas are
// instructions to the model; internal/schema revalidates everything.

var planningFormat = agent.OutputFormat{
	Name: "PlanningOutput",
	Schema: `{
  "type": "object",
  "properties": {
    "topic": {"type": "string", "description": "The news topic being researched"},
    "selected_sources": {
      "type": "array",
      "minItems": 1,
      "maxItems": 15,
      "items": {
        "type": "object",
        "properties": {
          "country": {"type": "string", "description": "Country or organization, exactly as listed"},
          "media_name": {"type": "string", "description": "Name of the media outlet, exactly as listed"},
          "url": {"type": "string", "description": "Homepage URL, exactly as listed"},
          "priority": {"type": "string", "enum": ["high", "medium", "low"]}
        },
        "required": ["country", "media_name", "url", "priority"]
      }
    },
    "rationale": {"type": "string", "description": "Brief explanation of selection criteria, max 2 sentences"}
  },
  "required": ["topic", "selected_sources", "rationale"]
}`,
}

var extractionFormat = agent.OutputFormat{
	Name: "ArticleExtraction",
	Schema: `{
  "type": "object",
  "properties": {
    "found_coverage": {"type": "boolean", "description": "Whether the homepage had news about the topic"},
    "headline": {"type": "string", "description": "Article headline, required when found_coverage is true"},
    "article_url": {"type": "string", "description": "Direct absolute http(s) URL to the article"},
    "core_viewpoint": {"type": "string", "description": "The outlet's core viewpoint in 1-2 sentences, at least 10 words"},
    "publication_date": {"type": "string", "description": "Publication date if shown, YYYY-MM-DD"}
  },
  "required": ["found_coverage"]
}`,
}

var aggregationFormat = agent.OutputFormat{
	Name: "AggregationOutput",
	Schema: `{
  "type": "object",
  "properties": {
    "topic": {"type": "string"},
    "total_sources_checked": {"type": "integer"},
    "sources_with_coverage": {"type": "integer"},
    "comparison_table": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "country": {"type": "string"},
          "media_name": {"type": "string"},
          "article_title": {"type": "string"},
          "article_url": {"type": "string"},
          "core_viewpoint": {"type": "string"},
          "sentiment": {"type": "string", "description": "Optional one-word sentiment: positive, negative, neutral, critical, supportive"}
        },
        "required": ["country", "media_name", "article_title", "article_url", "core_viewpoint"]
      }
    },
    "summary": {"type": "string", "description": "2-3 sentence summary highlighting key patterns or disagreements across sources"},
    "processing_timestamp": {"type": "string"}
  },
  "required": ["topic", "total_sources_checked", "sources_with_coverage", "comparison_table", "summary", "processing_timestamp"]
}`,
}

// buildPlanningPrompt embeds the formatted catalog and the desired count.
func buildPlanningPrompt(topic, formattedSources string, numSources int) []ai.Message {
	return []ai.Message{
		{
			Role: "system",
			Content: `You are a media analysis expert selecting news sources.

Task: Select the most relevant news sources for the topic.

Selection criteria:
1. Geographic diversity (different regions/perspectives)
2. Political diversity (different political leanings)
3. Reliability (established mainstream sources)
4. Likely to have coverage of this topic`,
		},
		{
			Role: "user",
			Content: fmt.Sprintf(`Topic: %s

%s

Select %d sources from the list above that will provide diverse perspectives on this topic.

For each selected source, assign a priority level:
- high: Major international outlets directly relevant to the topic
- medium: Regional outlets with valuable perspectives
- low: Backup sources for additional context`, topic, formattedSources, numSources),
		},
	}
}

// buildExtractionPrompt targets one homepage.
func buildExtractionPrompt(url, topic string) []ai.Message {
	return []ai.Message{
		{
			Role: "system",
			Content: `You are a news extraction specialist working with browser tools.

Task: Visit the homepage and find news about the given topic.

Steps:
1. Use navigate to open the homepage
2. Use read_page and list_links to look for headlines about the topic
3. If a relevant article is linked, open it to read it
4. Extract: headline, article URL, core viewpoint (1-2 sentences)

If no relevant news is found on the homepage, return found_coverage=false.`,
		},
		{
			Role: "user",
			Content: fmt.Sprintf(`Visit %s and search for news about: %s

Only look at the homepage - don't navigate deep into the site.`, url, topic),
		},
	}
}

// buildAggregationPrompt carries the covered results as JSON.
func buildAggregationPrompt(topic string, sourceCount int, resultsJSON string) []ai.Message {
	return []ai.Message{
		{
			Role: "system",
			Content: `You are a media analysis synthesizer.

Task: Aggregate extracted articles into a comparison table and summary.

Requirements:
1. Create comparison table sorted by relevance/importance
2. Write 2-3 sentence summary highlighting key patterns, differences, or consensus`,
		},
		{
			Role: "user",
			Content: fmt.Sprintf(`Topic: %s

Extracted articles from %d sources:
%s

Create the final aggregation with comparison table and summary.`, topic, sourceCount, resultsJSON),
		},
	}
}
