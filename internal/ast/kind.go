package ast

// Category is the coarse node class used to dispatch traversal behaviour.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryDeclaration
	CategoryReference
	CategoryExpression
	CategoryStatement
	CategoryUnexposed
	CategoryTranslationUnit
)

func (c Category) String() string {
	switch c {
	case CategoryDeclaration:
		return "declaration"
	case CategoryReference:
		return "reference"
	case CategoryExpression:
		return "expression"
	case CategoryStatement:
		return "statement"
	case CategoryUnexposed:
		return "unexposed"
	case CategoryTranslationUnit:
		return "translation_unit"
	default:
		return "invalid"
	}
}

// Kind identifies the syntactic kind of a node. Names follow the cursor kinds
// of the clang C API so that graph consumers see familiar labels.
type Kind int

const (
	KindInvalid Kind = iota

	// Declarations.
	KindUnexposedDecl
	KindStructDecl
	KindUnionDecl
	KindClassDecl
	KindEnumDecl
	KindFieldDecl
	KindEnumConstantDecl
	KindFunctionDecl
	KindVarDecl
	KindParmDecl
	KindTypedefDecl
	KindCXXMethod
	KindNamespace
	KindLinkageSpec
	KindConstructor
	KindDestructor
	KindConversionFunction
	KindTemplateTypeParameter
	KindTemplateNonTypeParameter
	KindTemplateTemplateParameter
	KindFunctionTemplate
	KindClassTemplate
	KindClassTemplatePartialSpecialization
	KindNamespaceAlias
	KindUsingDirective
	KindUsingDeclaration
	KindTypeAliasDecl
	KindTypeAliasTemplateDecl
	KindFriendDecl
	KindStaticAssert

	// References.
	KindTypeRef
	KindCXXBaseSpecifier
	KindTemplateRef
	KindNamespaceRef
	KindMemberRef

	// Expressions.
	KindUnexposedExpr
	KindDeclRefExpr
	KindCallExpr
	KindLambdaExpr

	// Statements.
	KindCompoundStmt
	KindDeclStmt
	KindReturnStmt
	KindIfStmt
	KindForStmt
	KindWhileStmt

	KindTranslationUnit

	kindCount
)

var kindNames = [kindCount]string{
	KindInvalid:                            "INVALID_FILE",
	KindUnexposedDecl:                      "UNEXPOSED_DECL",
	KindStructDecl:                         "STRUCT_DECL",
	KindUnionDecl:                          "UNION_DECL",
	KindClassDecl:                          "CLASS_DECL",
	KindEnumDecl:                           "ENUM_DECL",
	KindFieldDecl:                          "FIELD_DECL",
	KindEnumConstantDecl:                   "ENUM_CONSTANT_DECL",
	KindFunctionDecl:                       "FUNCTION_DECL",
	KindVarDecl:                            "VAR_DECL",
	KindParmDecl:                           "PARM_DECL",
	KindTypedefDecl:                        "TYPEDEF_DECL",
	KindCXXMethod:                          "CXX_METHOD",
	KindNamespace:                          "NAMESPACE",
	KindLinkageSpec:                        "LINKAGE_SPEC",
	KindConstructor:                        "CONSTRUCTOR",
	KindDestructor:                         "DESTRUCTOR",
	KindConversionFunction:                 "CONVERSION_FUNCTION",
	KindTemplateTypeParameter:              "TEMPLATE_TYPE_PARAMETER",
	KindTemplateNonTypeParameter:           "TEMPLATE_NON_TYPE_PARAMETER",
	KindTemplateTemplateParameter:          "TEMPLATE_TEMPLATE_PARAMETER",
	KindFunctionTemplate:                   "FUNCTION_TEMPLATE",
	KindClassTemplate:                      "CLASS_TEMPLATE",
	KindClassTemplatePartialSpecialization: "CLASS_TEMPLATE_PARTIAL_SPECIALIZATION",
	KindNamespaceAlias:                     "NAMESPACE_ALIAS",
	KindUsingDirective:                     "USING_DIRECTIVE",
	KindUsingDeclaration:                   "USING_DECLARATION",
	KindTypeAliasDecl:                      "TYPE_ALIAS_DECL",
	KindTypeAliasTemplateDecl:              "TYPE_ALIAS_TEMPLATE_DECL",
	KindFriendDecl:                         "FRIEND_DECL",
	KindStaticAssert:                       "STATIC_ASSERT",
	KindTypeRef:                            "TYPE_REF",
	KindCXXBaseSpecifier:                   "CXX_BASE_SPECIFIER",
	KindTemplateRef:                        "TEMPLATE_REF",
	KindNamespaceRef:                       "NAMESPACE_REF",
	KindMemberRef:                          "MEMBER_REF",
	KindUnexposedExpr:                      "UNEXPOSED_EXPR",
	KindDeclRefExpr:                        "DECL_REF_EXPR",
	KindCallExpr:                           "CALL_EXPR",
	KindLambdaExpr:                         "LAMBDA_EXPR",
	KindCompoundStmt:                       "COMPOUND_STMT",
	KindDeclStmt:                           "DECL_STMT",
	KindReturnStmt:                         "RETURN_STMT",
	KindIfStmt:                             "IF_STMT",
	KindForStmt:                            "FOR_STMT",
	KindWhileStmt:                          "WHILE_STMT",
	KindTranslationUnit:                    "TRANSLATION_UNIT",
}

// String returns the clang-style kind name, e.g. "CLASS_DECL".
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return kindNames[KindInvalid]
	}
	return kindNames[k]
}

// Category reports which coarse class the kind belongs to.
func (k Kind) Category() Category {
	switch {
	case k == KindUnexposedDecl, k == KindUnexposedExpr:
		return CategoryUnexposed
	case k > KindUnexposedDecl && k <= KindStaticAssert:
		return CategoryDeclaration
	case k >= KindTypeRef && k <= KindMemberRef:
		return CategoryReference
	case k > KindUnexposedExpr && k <= KindLambdaExpr:
		return CategoryExpression
	case k >= KindCompoundStmt && k <= KindWhileStmt:
		return CategoryStatement
	case k == KindTranslationUnit:
		return CategoryTranslationUnit
	default:
		return CategoryInvalid
	}
}

// IsRecord reports whether the kind declares a class, struct or union,
// including class templates.
func (k Kind) IsRecord() bool {
	switch k {
	case KindClassDecl, KindStructDecl, KindUnionDecl,
		KindClassTemplate, KindClassTemplatePartialSpecialization:
		return true
	}
	return false
}

// IsFunction reports whether the kind declares something callable.
func (k Kind) IsFunction() bool {
	switch k {
	case KindFunctionDecl, KindFunctionTemplate, KindLambdaExpr:
		return true
	}
	return k.IsMethod()
}

// IsMethod reports whether the kind declares a member function.
func (k Kind) IsMethod() bool {
	switch k {
	case KindCXXMethod, KindConstructor, KindDestructor, KindConversionFunction:
		return true
	}
	return false
}

// IsTemplateParameter reports whether the kind is one of the template
// parameter declarations.
func (k Kind) IsTemplateParameter() bool {
	switch k {
	case KindTemplateTypeParameter, KindTemplateNonTypeParameter, KindTemplateTemplateParameter:
		return true
	}
	return false
}

// ParseKind maps a clang-style kind name back to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return KindInvalid, false
}
