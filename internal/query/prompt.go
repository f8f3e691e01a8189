package query

import (
	"strings"

	"github.com/mgpai22/querier/internal/segment"
)

// separates rendered records inside the prompt
const recordDelimiter = "\n\n\n"

const promptTemplate = `As informações de segmentos de vídeos são as seguintes:
---------------------------
{segments}
---------------------------
Conforme as informações de segmentos de vídeos e nenhuma outra informação, responda a pergunta.
O formato da resposta deve ser um objeto JSON contendo um resumo e os segmentos encontrados. Se nenhum segmento for encontrado, retorne um objeto contendo um resumo explicando que nada foi encontrado e a propriedade segments como um array vazio. Sempre inclua o "video_id" nos segmentos.
Exemplo de resposta:
--------------------------
{"summary":"Foram encontrados 1 menção de nintendo switch no Canal do Coca no vídeo 'video_id' no minuto 00:00:00 a 00:00:05.","segments":[{"start":"00:00:00","end":"00:00:05","name":"Canal do Coca","content":"Nintendo Switch","video_id":"1234"}]}

{"summary":"Não foram encontradas menções de nintendo switch no Canal do Coca","segments":[]}
--------------------------
Pergunta: {question}
Resposta:
`

// BuildPrompt renders the retrieved records, in retrieval order, and the
// question into the instruction sent to the model.
func BuildPrompt(records []segment.Record, question string) string {
	rendered := make([]string, len(records))
	for i, r := range records {
		rendered[i] = r.Render()
	}

	// one pass; substituted text is not rescanned
	return strings.NewReplacer(
		"{segments}", strings.Join(rendered, recordDelimiter),
		"{question}", question,
	).Replace(promptTemplate)
}
