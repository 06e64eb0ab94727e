// Cinematch - Content-Based Movie Recommendation Service
// Copyright 2026 Cinematch contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinematch/cinematch

package recommend

// englishStopWords is the default stop word set removed during tokenization.
// High-frequency function words carry no signal for content similarity and
// would otherwise dominate the document frequency counts.
var englishStopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "across", "after", "afterwards", "again",
		"against", "all", "almost", "alone", "along", "already", "also",
		"although", "always", "am", "among", "amongst", "an", "and",
		"another", "any", "anyhow", "anyone", "anything", "anyway",
		"anywhere", "are", "around", "as", "at", "back", "be", "became",
		"because", "become", "becomes", "becoming", "been", "before",
		"beforehand", "behind", "being", "below", "beside", "besides",
		"between", "beyond", "both", "bottom", "but", "by", "call", "can",
		"cannot", "could", "did", "do", "does", "doing", "done", "down",
		"due", "during", "each", "either", "else", "elsewhere", "empty",
		"enough", "even", "ever", "every", "everyone", "everything",
		"everywhere", "except", "few", "first", "for", "former", "formerly",
		"from", "front", "full", "further", "get", "give", "go", "had",
		"has", "have", "he", "hence", "her", "here", "hereafter", "hereby",
		"herein", "hereupon", "hers", "herself", "him", "himself", "his",
		"how", "however", "i", "if", "in", "indeed", "into", "is", "it",
		"its", "itself", "just", "last", "latter", "latterly", "least",
		"less", "many", "may", "me", "meanwhile", "might", "mine", "more",
		"moreover", "most", "mostly", "much", "must", "my", "myself",
		"namely", "neither", "never", "nevertheless", "next", "no",
		"nobody", "none", "noone", "nor", "not", "nothing", "now",
		"nowhere", "of", "off", "often", "on", "once", "one", "only",
		"onto", "or", "other", "others", "otherwise", "our", "ours",
		"ourselves", "out", "over", "own", "per", "perhaps", "please",
		"rather", "re", "same", "see", "seem", "seemed", "seeming",
		"seems", "serious", "several", "she", "should", "since", "so",
		"some", "somehow", "someone", "something", "sometime", "sometimes",
		"somewhere", "still", "such", "take", "than", "that", "the",
		"their", "theirs", "them", "themselves", "then", "thence", "there",
		"thereafter", "thereby", "therefore", "therein", "thereupon",
		"these", "they", "this", "those", "though", "through",
		"throughout", "thru", "thus", "to", "together", "too", "top",
		"toward", "towards", "under", "until", "up", "upon", "us", "very",
		"via", "was", "we", "well", "were", "what", "whatever", "when",
		"whence", "whenever", "where", "whereafter", "whereas", "whereby",
		"wherein", "whereupon", "wherever", "whether", "which", "while",
		"whither", "who", "whoever", "whole", "whom", "whose", "why",
		"will", "with", "within", "without", "would", "yet", "you", "your",
		"yours", "yourself", "yourselves",
	} {
		englishStopWords[w] = struct{}{}
	}
}
