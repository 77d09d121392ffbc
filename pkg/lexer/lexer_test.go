package lexer

import "testing"

func TestNextToken_BasicTokens(t *testing.T) {
	input := `, : ( ) [ ] { } . .. = == != < <= > >= + - * / % & && | || ~ ! ? << >>`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenComma, ","}, {TokenColon, ":"}, {TokenLParen, "("}, {TokenRParen, ")"},
		{TokenLBracket, "["}, {TokenRBracket, "]"}, {TokenLBrace, "{"}, {TokenRBrace, "}"},
		{TokenDot, "."}, {TokenDotDot, ".."}, {TokenAssign, "="}, {TokenEq, "=="},
		{TokenNotEq, "!="}, {TokenLess, "<"}, {TokenLessEq, "<="}, {TokenGreater, ">"},
		{TokenGreaterEq, ">="}, {TokenPlus, "+"}, {TokenMinus, "-"}, {TokenStar, "*"},
		{TokenSlash, "/"}, {TokenPercent, "%"}, {TokenAmp, "&"}, {TokenAndAnd, "&&"},
		{TokenPipe, "|"}, {TokenPipePipe, "||"}, {TokenTilde, "~"}, {TokenBang, "!"},
		{TokenQuestion, "?"}, {TokenShl, "<<"}, {TokenShr, ">>"},
		{TokenEOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (literal %q)",
				i, tt.expectedType, tok.Type, tok.Text)
		}
		if tok.Text != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q", i, tt.expectedLiteral, tok.Text)
		}
	}
}

func TestNextToken_KeywordsAndIdentifiers(t *testing.T) {
	input := `var fun if else true false while for break continue return null class this static super is import foo _bar baz123`

	expectedTypes := []TokenType{
		TokenVar, TokenFun, TokenIf, TokenElse, TokenTrue, TokenFalse, TokenWhile, TokenFor,
		TokenBreak, TokenContinue, TokenReturn, TokenNull, TokenClass, TokenThis, TokenStatic,
		TokenSuper, TokenIs, TokenImport,
		TokenIdentifier, TokenIdentifier, TokenIdentifier,
		TokenEOF,
	}

	l := New(input)
	for i, want := range expectedTypes {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v (literal %q)", i, want, tok.Type, tok.Text)
		}
	}
}

func TestNextToken_NumberLiteral(t *testing.T) {
	l := New(`42 3.5`)

	tok := l.NextToken()
	if tok.Type != TokenNumber || tok.NumberValue != 42 {
		t.Fatalf("expected number 42, got %v %v", tok.Type, tok.NumberValue)
	}
	tok = l.NextToken()
	if tok.Type != TokenNumber || tok.NumberValue != 3.5 {
		t.Fatalf("expected number 3.5, got %v %v", tok.Type, tok.NumberValue)
	}
}

func TestNextToken_StringLiteral(t *testing.T) {
	l := New(`"hello\nworld"`)
	tok := l.NextToken()
	if tok.Type != TokenString {
		t.Fatalf("expected string, got %v", tok.Type)
	}
	if tok.StringValue != "hello\nworld" {
		t.Fatalf("expected decoded escape, got %q", tok.StringValue)
	}
}

func TestNextToken_StringInterpolation(t *testing.T) {
	// "sum: %(a + b)!"
	l := New(`"sum: %(a + b)!"`)

	tok := l.NextToken()
	if tok.Type != TokenInterpolation || tok.StringValue != "sum: " {
		t.Fatalf("expected interpolation fragment %q, got %v %q", "sum: ", tok.Type, tok.StringValue)
	}

	idA := l.NextToken()
	if idA.Type != TokenIdentifier || idA.Text != "a" {
		t.Fatalf("expected identifier a, got %v %q", idA.Type, idA.Text)
	}
	plus := l.NextToken()
	if plus.Type != TokenPlus {
		t.Fatalf("expected +, got %v", plus.Type)
	}
	idB := l.NextToken()
	if idB.Type != TokenIdentifier || idB.Text != "b" {
		t.Fatalf("expected identifier b, got %v %q", idB.Type, idB.Text)
	}
	rparen := l.NextToken()
	if rparen.Type != TokenRParen {
		t.Fatalf("expected ), got %v", rparen.Type)
	}

	rest := l.ResumeString()
	if rest.Type != TokenString || rest.StringValue != "!" {
		t.Fatalf("expected trailing string fragment %q, got %v %q", "!", rest.Type, rest.StringValue)
	}
}

func TestNextToken_NestedInterpolationRejected(t *testing.T) {
	l := New(`"a%("b%(c)"`)
	first := l.NextToken()
	if first.Type != TokenInterpolation {
		t.Fatalf("expected interpolation, got %v", first.Type)
	}
	second := l.NextToken()
	if second.Type != TokenUnknown {
		t.Fatalf("expected nested interpolation to be rejected, got %v", second.Type)
	}
}

func TestNextToken_Comments(t *testing.T) {
	l := New("var x // a comment\n/* block */ var y")
	types := []TokenType{TokenVar, TokenIdentifier, TokenVar, TokenIdentifier, TokenEOF}
	for i, want := range types {
		tok := l.NextToken()
		if tok.Type != want {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%v, got=%v", i, want, tok.Type)
		}
	}
}

func TestNextToken_LineTracking(t *testing.T) {
	l := New("var\nx\n=\n1")
	var lines []int
	for {
		tok := l.NextToken()
		if tok.Type == TokenEOF {
			break
		}
		lines = append(lines, tok.Line)
	}
	want := []int{1, 2, 3, 4}
	if len(lines) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("token %d on line %d, want %d", i, lines[i], want[i])
		}
	}
}
