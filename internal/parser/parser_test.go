package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullDocument = `<?xml version="1.0" encoding="UTF-8"?>
<TEXTE_JURI_JUDI>
  <META>
    <META_COMMUN>
      <ID>JURITEXT000047890123</ID>
      <ORIGINE>JURI</ORIGINE>
    </META_COMMUN>
    <META_SPEC>
      <META_JURI>
        <TITRE>Cour de cassation, civile, Chambre sociale, 5 juillet 2023, 21-24.122</TITRE>
      </META_JURI>
      <META_JURI_JUDI>
        <FORMATION>CHAMBRE_SOCIALE</FORMATION>
      </META_JURI_JUDI>
    </META_SPEC>
  </META>
  <TEXTE>
    <BLOC_TEXTUEL>
      <CONTENU>
        Attendu que le salarié a été licencié ;<br/>Sur le moyen unique :<br/>REJETTE le pourvoi
      </CONTENU>
    </BLOC_TEXTUEL>
  </TEXTE>
</TEXTE_JURI_JUDI>`

func TestParse_AllFields(t *testing.T) {
	d, err := Parse([]byte(fullDocument))
	require.NoError(t, err)

	assert.Equal(t, "JURITEXT000047890123", d.ID)
	assert.Equal(t, "Cour de cassation, civile, Chambre sociale, 5 juillet 2023, 21-24.122", d.Title)
	assert.Equal(t, "CHAMBRE_SOCIALE", d.Formation)
	assert.Equal(t, "Attendu que le salarié a été licencié ;\nSur le moyen unique :\nREJETTE le pourvoi", d.Content)
}

func TestParse_MissingOptionalElements(t *testing.T) {
	doc := `<TEXTE_JURI_JUDI><META><META_COMMUN><ID>JURITEXT1</ID></META_COMMUN></META></TEXTE_JURI_JUDI>`

	d, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "JURITEXT1", d.ID)
	assert.Empty(t, d.Title)
	assert.Empty(t, d.Formation)
	assert.Empty(t, d.Content)
}

func TestParse_NoIdentifier(t *testing.T) {
	d, err := Parse([]byte(`<TEXTE_JURI_JUDI><CONTENU>texte</CONTENU></TEXTE_JURI_JUDI>`))
	require.NoError(t, err)
	assert.Empty(t, d.ID)
	assert.Equal(t, "texte", d.Content)
}

func TestParse_NestedLineBreaks(t *testing.T) {
	doc := `<DOC><CONTENU><p>Premier<br/>deuxième</p><p><b>gras</b> suite<br/></p>fin</CONTENU></DOC>`

	d, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "Premier\ndeuxièmegras suite\nfin", d.Content)
}

func TestParse_ContentFollowsDocumentOrder(t *testing.T) {
	d, err := Parse([]byte(`<DOC><CONTENU>a<p>b<br/>c</p>d</CONTENU></DOC>`))
	require.NoError(t, err)
	assert.Equal(t, "ab\ncd", d.Content)
}

func TestParse_OnlyFirstMatchCounts(t *testing.T) {
	doc := `<DOC>
<META_COMMUN><ID>first</ID></META_COMMUN>
<META_COMMUN><ID>second</ID></META_COMMUN>
<CONTENU>one</CONTENU>
<CONTENU>two</CONTENU>
</DOC>`

	d, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "first", d.ID)
	assert.Equal(t, "one", d.Content)
}

func TestParse_IgnoresElementOutsidePath(t *testing.T) {
	doc := `<DOC><OTHER><ID>wrong</ID></OTHER><META_COMMUN><ID>right</ID></META_COMMUN></DOC>`

	d, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "right", d.ID)
}

func TestParse_Latin1Encoding(t *testing.T) {
	doc := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><DOC><META_JURI><TITRE>Arr`), 0xEA)
	doc = append(doc, []byte(`t</TITRE></META_JURI></DOC>`)...)

	d, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "Arrêt", d.Title)
}

func TestParse_HTMLEntities(t *testing.T) {
	d, err := Parse([]byte(`<DOC><CONTENU>a&nbsp;b &amp; c</CONTENU></DOC>`))
	require.NoError(t, err)
	assert.Equal(t, "a\u00a0b & c", d.Content)
}

func TestParse_Malformed(t *testing.T) {
	cases := map[string]string{
		"mismatched": `<DOC><META_COMMUN><ID>x</META_COMMUN></DOC>`,
		"truncated":  `<DOC><CONTENU>texte`,
		"empty":      ``,
		"not xml":    `just some text`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}
