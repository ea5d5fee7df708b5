package config

// DefaultPrompts returns the built-in stage templates. Each is a
// fmt.Sprintf template; the pipeline documents the argument order per stage.
func DefaultPrompts() Prompts {
	return Prompts{
		Classify: `You are an industry analyst. Classify the following subject.

Subject: %s

Return ONLY a JSON object:
{
  "archetype": "linear | hub_and_spoke | circular | platform",
  "subject": "<canonical industry name>",
  "region": "<dominant region, or empty string if global>"
}`,

		Structure: `You are mapping the value chain of an industry.

Industry: %s
Economic archetype: %s
%s
Produce between 10 and 16 top-level stages covering the full chain from
inputs to end customers. Return ONLY a JSON object:
{
  "nodes": [
    {
      "label": "<stage name>",
      "category": "extraction | processing | manufacturing | distribution | retail | service | support | other",
      "description": "<one sentence>",
      "objective": "<what this stage optimizes for>",
      "revenue_model": "<how money is made here>",
      "tools": ["..."],
      "actors": ["..."],
      "pain_points": ["..."],
      "cost_drivers": ["..."],
      "regulatory_notes": "<key regulation, or empty>"
    }
  ]
}`,

		Expand: `You are detailing one stage of the %s value chain.

Stage: %s (%s)

Break this stage into sub-activities, at most %d levels deep and at most 5
children per node. Return ONLY a JSON object:
{
  "children": [
    {
      "label": "...",
      "category": "extraction | processing | manufacturing | distribution | retail | service | support | other",
      "description": "...",
      "children": [ ... ]
    }
  ]
}`,

		Crosslink: `These are the principal stages of the %s value chain:

%s
Identify the material flows and dependencies between stages. Return ONLY a
JSON object using the ids above:
{
  "edges": [
    {"source": "<id>", "target": "<id>"}
  ]
}`,
	}
}
