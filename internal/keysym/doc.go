// Package keysym defines modifier sets and key symbols as delivered by the
// compositor's keyboard layer, plus a parser for combos like "alt-shift-h".
package keysym
