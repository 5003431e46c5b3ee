package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextToken_BasicTokens(t *testing.T) {
	input := `( ) { } , . - + ; / *`

	tests := []struct {
		kind   Kind
		lexeme string
	}{
		{LeftParen, "("},
		{RightParen, ")"},
		{LeftBrace, "{"},
		{RightBrace, "}"},
		{Comma, ","},
		{Dot, "."},
		{Minus, "-"},
		{Plus, "+"},
		{Semicolon, ";"},
		{Slash, "/"},
		{Star, "*"},
		{EOF, ""},
	}

	s := New(input)
	for i, tt := range tests {
		tok := s.NextToken()
		require.Equalf(t, tt.kind, tok.Kind, "token %d", i)
		require.Equalf(t, tt.lexeme, tok.Lexeme(input), "token %d", i)
	}
}

func TestNextToken_TwoCharOperators(t *testing.T) {
	input := `! != = == < <= > >=`

	tests := []Kind{Bang, BangEqual, Equal, EqualEqual, Less, LessEqual, Greater, GreaterEqual}

	s := New(input)
	for i, want := range tests {
		tok := s.NextToken()
		require.Equalf(t, want, tok.Kind, "token %d", i)
	}
}

func TestNextToken_Keywords(t *testing.T) {
	input := "and class else false for fun if nil or print return super this true var while notakeyword"
	want := []Kind{And, Class, Else, False, For, Fun, If, Nil, Or, Print, Return, Super, This, True, Var, While, Identifier}

	s := New(input)
	for i, k := range want {
		tok := s.NextToken()
		require.Equalf(t, k, tok.Kind, "token %d", i)
	}
}

func TestNextToken_NumberAndString(t *testing.T) {
	input := `123 3.14 "hello world"`

	s := New(input)

	num := s.NextToken()
	require.Equal(t, Number, num.Kind)
	require.Equal(t, "123", num.Lexeme(input))

	float := s.NextToken()
	require.Equal(t, Number, float.Kind)
	require.Equal(t, "3.14", float.Lexeme(input))

	str := s.NextToken()
	require.Equal(t, String, str.Kind)
	require.Equal(t, `"hello world"`, str.Lexeme(input))
}

func TestNextToken_LineTracking(t *testing.T) {
	input := "var a = 1;\nvar b = 2;"

	s := New(input)
	var lastLine int
	for {
		tok := s.NextToken()
		if tok.Kind == EOF {
			lastLine = tok.Line
			break
		}
	}
	require.Equal(t, 2, lastLine)
}

func TestNextToken_CommentsAndWhitespace(t *testing.T) {
	input := "// a comment\nvar   a ; // trailing"

	s := New(input)
	require.Equal(t, Var, s.NextToken().Kind)
	require.Equal(t, Identifier, s.NextToken().Kind)
	require.Equal(t, Semicolon, s.NextToken().Kind)
	require.Equal(t, EOF, s.NextToken().Kind)
}

func TestNextToken_UnterminatedString(t *testing.T) {
	s := New(`"oops`)
	tok := s.NextToken()
	require.Equal(t, Error, tok.Kind)
	require.Equal(t, "Unterminated string.", tok.Message)
}

func TestNextToken_IllegalCharacter(t *testing.T) {
	s := New(`@`)
	tok := s.NextToken()
	require.Equal(t, Error, tok.Kind)
}
