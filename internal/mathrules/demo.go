package mathrules

// DemoExpressions is a small tour of the table, a few seeds per topic.
var DemoExpressions = []string{
	// Arithmetic
	"(5 + 3)",
	"(10 * 7)",
	"5!",
	// Algebra
	"x^2 * x^3",
	"log(a * b)",
	"(a+b)^2",
	// Calculus
	"d/dx x^4",
	"d/dx sin(x)",
	"d/dx e^x",
	"∫ x^2 dx",
	"∫ cos(x) dx",
	"lim_{x->0} sin(x)/x",
	// Trigonometry
	"sin(x)^2 + cos(x)^2",
	"sin(0)",
	"cos(π)",
	"sin(a + b)",
	// Logic
	"¬¬p",
	"p ∧ T",
	"p ∨ ¬p",
	// Set theory
	"A ∪ ∅",
	"A ∩ A",
	"(A ∪ B)'",
	// Complex
	"i^2",
	"e^(i*π)",
	// Statistics
	"P(A')",
	"E[3*X + 5]",
	"Var[Bin(n,p)]",
}
