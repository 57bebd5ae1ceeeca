// Package textutil provides text processing utilities for word counting,
// budgeted truncation, and filename sanitization.
//
// Word counting is script-aware: whitespace-delimited runs count as one word
// for alphabetic scripts, while each Han/Kana ideograph counts on its own,
// since translation length budgets must hold for both source and target
// languages.
package textutil
