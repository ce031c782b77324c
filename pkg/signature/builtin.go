package signature

// =============================================================================
// BUILTIN SIGNATURE SET
// Ships in the binary so the pipeline is useful with zero configuration.
// A configured artifact replaces this set entirely; it does not merge.
// =============================================================================

// builtinDefs is the source-of-truth list the builtin snapshot compiles
// from. Command patterns are whitespace-tolerant (\s+/\s*) and every
// pattern is case-insensitive via (?i).
func builtinDefs() []Signature {
	var defs []Signature

	add := func(id string, cat Category, weight int, pattern string) {
		defs = append(defs, Signature{ID: id, Category: cat, Pattern: pattern, Weight: weight})
	}

	// --- COMMAND INJECTION ---
	cmd := CategoryCommandInjection

	// Pipe-to-shell: the canonical droppers
	add("cmd_curl_pipe_shell", cmd, 80, `(?i)\bcurl\b[^|;&\n]*\|\s*(ba|z|da|k)?sh\b`)
	add("cmd_wget_pipe_shell", cmd, 80, `(?i)\bwget\b[^|;&\n]*\|\s*(ba|z|da|k)?sh\b`)
	add("cmd_fetch_exec", cmd, 70, `(?i)\b(curl|wget)\s+(-[A-Za-z]+\s+)*https?://\S+`)
	add("cmd_shell_c_download", cmd, 75, `(?i)\b(ba|z)?sh\s+-c\s+["'].*(curl|wget)`)

	// Destructive filesystem commands
	add("cmd_rm_rf", cmd, 85, `(?i)\brm\s+(-[a-z]*[rf][a-z]*\s+)+(/|~|\*|\.)`)
	add("cmd_mkfs", cmd, 85, `(?i)\bmkfs(\.[a-z0-9]+)?\s+/dev/`)
	add("cmd_dd_device", cmd, 85, `(?i)\bdd\s+if=\S+\s+of=/dev/`)
	add("cmd_fork_bomb", cmd, 85, `:\(\)\s*\{\s*:\|:&\s*\}\s*;`)

	// Shell metacharacter chaining into interpreters
	add("cmd_chained_interp", cmd, 65, `(?i)[;&|]\s*(python3?|perl|ruby|node)\s+-e\b`)
	add("cmd_eval_exec", cmd, 60, `(?i)\b(eval|exec)\s*\(\s*["']`)
	add("cmd_backtick_sub", cmd, 55, "`[^`]*\\b(curl|wget|rm|nc|bash)\\b[^`]*`")
	add("cmd_dollar_sub", cmd, 55, `(?i)\$\(\s*(curl|wget|rm|nc|bash)\b`)

	// Reverse shells and exfil plumbing
	add("cmd_nc_shell", cmd, 80, `(?i)\bnc\s+(-[a-z]+\s+)*\S+\s+\d{2,5}\s*(-e|<|\|)`)
	add("cmd_dev_tcp", cmd, 80, `(?i)/dev/tcp/\S+/\d+`)
	add("cmd_base64_pipe_shell", cmd, 75, `(?i)\bbase64\s+(-d|--decode)\b[^|\n]*\|\s*(ba|z)?sh\b`)

	// Sensitive path reads
	add("cmd_etc_shadow", cmd, 70, `(?i)\b(cat|less|head|tail|cp|scp)\s+[^|;&\n]*/etc/(shadow|sudoers)\b`)
	add("cmd_ssh_key_read", cmd, 70, `(?i)\b(cat|cp|scp|curl)\s+[^|;&\n]*(\.ssh/|id_rsa|id_ed25519)`)

	// Privilege escalation framing
	add("cmd_sudo_chain", cmd, 50, `(?i)[;&|]\s*sudo\s+\S+`)
	add("cmd_chmod_setuid", cmd, 60, `(?i)\bchmod\s+([0-7]*[4-7][0-7]{3}|\+s)\s`)

	// --- PROMPT INJECTION ---
	pi := CategoryPromptInjection

	// Instruction override
	add("pi_ignore_previous", pi, 75, `(?i)\b(ignore|disregard|forget|discard)\s+(all\s+|any\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|prompts?|rules?|context|messages?|directives?)`)
	add("pi_new_instructions", pi, 60, `(?i)\byour\s+new\s+(instructions?|rules?|task)\s+(are|is)\b`)
	add("pi_override_system", pi, 70, `(?i)\b(override|bypass|disable|remove)\s+(the\s+|your\s+|all\s+)?(system\s+prompt|safety|restrictions?|guidelines?|guardrails?|filters?)`)
	add("pi_start_fresh", pi, 55, `(?i)\b(previous|prior)\s+context\s+is\s+(invalid|void|cancelled)`)

	// Role override / jailbreak framing
	add("pi_role_override", pi, 65, `(?i)\byou\s+are\s+now\s+(a|an|the|in)\b`)
	add("pi_pretend_act_as", pi, 55, `(?i)\b(pretend\s+(to\s+be|you\s+are)|act\s+as\s+(a|an|if)|roleplay\s+as)\b`)
	add("pi_developer_mode", pi, 70, `(?i)\b(developer|debug|god|dan)\s+mode\b`)
	add("pi_no_restrictions", pi, 65, `(?i)\b(without|free\s+of|no)\s+(any\s+)?(restrictions?|limits?|filters?|censorship)\b`)
	add("pi_do_anything", pi, 65, `(?i)\b(can|will)\s+do\s+anything\s+now\b`)

	// Prompt/system extraction
	add("pi_reveal_prompt", pi, 70, `(?i)\b(reveal|show|print|output|display|repeat|tell\s+me)\s+(me\s+)?(your|the)\s+(system\s+|initial\s+|hidden\s+|full\s+)?(prompt|instructions?)`)
	add("pi_repeat_above", pi, 65, `(?i)\brepeat\s+(everything|all|the\s+(text|words))\s+(above|before|preceding)`)
	add("pi_what_told", pi, 60, `(?i)\bwhat\s+(is|are|were)\s+(your|you)\s+(original\s+|initial\s+)?(instructions?|told|prompt)`)

	// Hidden-instruction markers in tool/webhook payloads
	add("pi_hidden_marker", pi, 80, `(?i)<\s*(hidden|important|secret)\s*>`)
	add("pi_system_bracket", pi, 75, `(?i)\[\s*(system|admin)\s*:\s*(override|ignore|bypass|enable|disable)`)
	add("pi_dont_tell_user", pi, 75, `(?i)\b(do\s+not|don'?t)\s+(tell|mention|inform)\s+(this\s+to\s+)?the\s+user\b`)
	add("pi_urgent_override", pi, 55, `(?i)\b(urgent|important)\s*:\s*(ignore|bypass|override)\b`)

	// --- OBFUSCATION MARKERS ---
	// Hints that the payload is dressed up to evade plaintext matching.
	// Lower weights: they corroborate, they do not convict.
	obf := CategoryObfuscationMark

	add("obf_spaced_letters", obf, 25, `(?i)\b([a-z]\s){6,}[a-z]\b`)
	add("obf_escape_soup", obf, 25, `(\\x[0-9a-fA-F]{2}){6,}`)
	add("obf_unicode_soup", obf, 25, `(\\u[0-9a-fA-F]{4}){6,}`)
	add("obf_decode_request", obf, 35, `(?i)\b(decode|unscramble)\s+(this|the\s+following)\b`)
	add("obf_rot13_mention", obf, 30, `(?i)\brot13\b`)

	return defs
}

// Builtin returns the compiled builtin snapshot. The builtin set must
// always compile; a failure here is a programming error.
func Builtin() *Snapshot {
	snap, err := newSnapshot(builtinDefs(), "builtin")
	if err != nil {
		panic(err)
	}
	return snap
}
