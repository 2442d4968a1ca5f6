package oracle

// System prompts for the two extraction shapes. Both demand a single JSON
// object so the response can be parsed without free-text cleanup; temperature
// stays low to bias toward literal extraction.

const memorySystemPrompt = `You extract durable facts from conversation session summaries.

Return ONLY a JSON object of the form:
{"extractions": [{"type": "...", "content": "...", "importance": 0.0, "tags": ["..."]}]}

Rules:
- "type" is one of: decision, learning, preference, context, relationship.
- "content" is a 1-2 sentence standalone statement of the fact.
- "importance" is a number from 0 to 1.
- Extract only facts worth remembering across sessions. If there are none,
  return {"extractions": []}.`

const relationSystemPrompt = `You extract entity relationships from conversation text.

Return ONLY a JSON object of the form:
{"relations": [{"source": "...", "source_type": "...", "target": "...", "target_type": "...", "relation": "...", "context": "..."}]}

Rules:
- "relation" is one of: works_at, works_on, collaborates_with, part_of,
  related_to, depends_on, owns, mentions, influenced_by.
- "source" and "target" are the entity names exactly as mentioned.
- "context" is a short phrase describing where the relationship was observed.
- If no relationships are present, return {"relations": []}.`
