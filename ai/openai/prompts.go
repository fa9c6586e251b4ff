package openai

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "documentId": {"type": "string"},
    "issuer": {"type": "string"},
    "customerName": {"type": "string"},
    "documentType": {"type": "string", "enum": ["sampleBill", "contract"]},
    "statementDate": {"type": "string"},
    "totalUsage": {"type": "number"},
    "unit": {"type": "string"},
    "usageHistory": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "periodLabel": {"type": "string"},
          "usageValue": {"type": "number"},
          "unit": {"type": "string"}
        },
        "required": ["periodLabel", "usageValue"]
      }
    },
    "locations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "accountNumber": {"type": "string"},
          "serviceAddress": {"type": "string"},
          "meterNumber": {"type": "string"},
          "usageHistory": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "periodLabel": {"type": "string"},
                "usageValue": {"type": "number"},
                "unit": {"type": "string"}
              },
              "required": ["periodLabel", "usageValue"]
            }
          },
          "charges": {
            "type": "array",
            "items": {
              "type": "object",
              "properties": {
                "label": {"type": "string"},
                "amount": {"type": "number"},
                "rate": {"type": "number"}
              },
              "required": ["label", "amount"]
            }
          }
        }
      }
    }
  },
  "required": ["documentId"]
}`

const extractionPromptTemplate = `You are a data extraction system for scanned utility bills and utility contracts.
You receive the raw parsed content of one document as JSON and must restructure
it into a single structured JSON object.

Output ONLY valid JSON which complies with the schema given below. Do not include
any preamble, explanation, greeting, or acknowledgment. Start your response
directly with the opening brace { and end with the closing brace }. Your output
must exactly follow this schema:

%s

Rules:
- Set "documentId" to exactly: %s
- "documentType" must be "sampleBill" for a utility bill or "contract" for a service contract. Omit it if the document is neither.
- Copy values from the source content only. Never invent account numbers, addresses, meter numbers, dates, or usage figures that are not present.
- "usageHistory" entries need a "periodLabel" and a numeric "usageValue". Include the "unit" (kWh, therms, CCF, gallons) when the document states one.
- Multi-site bills list each site under "locations" with its own account number, service address, meter number, usage history, and charges.
- Omit any field whose value is not present in the document. Do not emit empty strings or null placeholders.
- The JSON must parse without errors; no trailing commas, no extraneous text outside the object.`

const synthesisSystemPrompt = "You are an expert Q&A system. Answer the user's question based ONLY on " +
	"the provided context documents. If the answer isn't in the context, say so."

const synthesisUserPromptTemplate = "CONTEXT DOCUMENTS:\n%s\n\nUSER'S QUESTION:\n%s\n\nANSWER:"

// contextSeparator joins retrieved context blocks in the synthesis prompt.
const contextSeparator = "\n\n---\n\n"
